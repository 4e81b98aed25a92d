package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/ironsheep/fiducial-mcp/internal/store"
	"github.com/ironsheep/fiducial-mcp/internal/tracker"
)

// config is the startup configuration taken from the environment.
type config struct {
	Debug           bool
	CalibrationPath string
	TagConfigPath   string
	OmitOtherTags   bool
	FrameWidth      int
	FrameHeight     int
}

// configFromEnv reads the FIDUCIAL_MCP_* variables through getenv.
func configFromEnv(getenv func(string) string) (config, error) {
	cfg := config{
		Debug:           getenv("FIDUCIAL_MCP_LOG_LEVEL") == "debug",
		CalibrationPath: getenv("FIDUCIAL_MCP_CALIBRATION"),
		TagConfigPath:   getenv("FIDUCIAL_MCP_TAG_CONFIG"),
	}

	if v := getenv("FIDUCIAL_MCP_OMIT_OTHER_TAGS"); v != "" {
		omit, err := strconv.ParseBool(v)
		if err != nil {
			return config{}, fmt.Errorf("failed to parse FIDUCIAL_MCP_OMIT_OTHER_TAGS: %w", err)
		}
		cfg.OmitOtherTags = omit
	}

	if v := getenv("FIDUCIAL_MCP_FRAME_SIZE"); v != "" {
		w, h, err := parseFrameSize(v)
		if err != nil {
			return config{}, fmt.Errorf("failed to parse FIDUCIAL_MCP_FRAME_SIZE: %w", err)
		}
		cfg.FrameWidth, cfg.FrameHeight = w, h
	}
	return cfg, nil
}

// parseFrameSize parses "<width>x<height>".
func parseFrameSize(s string) (int, int, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("frame size %q is not WIDTHxHEIGHT", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid width in %q: %w", s, err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid height in %q: %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("frame size %q must be positive", s)
	}
	return w, h, nil
}

// newTracker builds the tracker and preloads the configured descriptors.
func (c config) newTracker() (*tracker.Tracker, error) {
	opts := tracker.DefaultOptions()
	opts.Debug = c.Debug
	tr := tracker.New(store.New(c.FrameWidth, c.FrameHeight), opts)

	if c.CalibrationPath != "" {
		data, err := os.ReadFile(c.CalibrationPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read calibration: %w", err)
		}
		if err := tr.ReadCalibration(data); err != nil {
			return nil, fmt.Errorf("failed to load calibration %s: %w", c.CalibrationPath, err)
		}
		if c.Debug {
			log.Printf("Loaded calibration from %s", c.CalibrationPath)
		}
	}

	if c.TagConfigPath != "" {
		data, err := os.ReadFile(c.TagConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read tag configuration: %w", err)
		}
		if err := tr.ReadTagConfiguration(data, c.OmitOtherTags); err != nil {
			return nil, fmt.Errorf("failed to load tag configuration %s: %w", c.TagConfigPath, err)
		}
		if c.Debug {
			log.Printf("Loaded tag configuration from %s", c.TagConfigPath)
		}
	} else if c.OmitOtherTags {
		if err := tr.Store().SetTagDefinitions(nil, true); err != nil {
			return nil, fmt.Errorf("failed to apply FIDUCIAL_MCP_OMIT_OTHER_TAGS: %w", err)
		}
	}
	return tr, nil
}
