package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ironsheep/fiducial-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("fiducial-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("fiducial-mcp - MCP server for fiducial tag detection and pose estimation")
			fmt.Println()
			fmt.Println("Usage: fiducial-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  FIDUCIAL_MCP_LOG_LEVEL=debug        Enable debug logging")
			fmt.Println("  FIDUCIAL_MCP_CALIBRATION=<path>     Camera calibration to load at startup")
			fmt.Println("  FIDUCIAL_MCP_TAG_CONFIG=<path>      Tag layout to load at startup")
			fmt.Println("  FIDUCIAL_MCP_OMIT_OTHER_TAGS=true   Ignore tags missing from the layout")
			fmt.Println("  FIDUCIAL_MCP_FRAME_SIZE=640x480     Frame size of the uncalibrated camera")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := configFromEnv(os.Getenv)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if cfg.Debug {
		log.Printf("Fiducial MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	tr, err := cfg.newTracker()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	srv := server.New(tr)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	if cfg.Debug {
		log.Printf("Input closed after %d passes", tr.Frame())
	}
}
