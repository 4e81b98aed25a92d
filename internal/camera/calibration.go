package camera

import (
	"regexp"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// matrixNode is an OpenCV FileStorage matrix, or a plain {rows, cols, data}
// mapping.
type matrixNode struct {
	Rows int       `yaml:"rows"`
	Cols int       `yaml:"cols"`
	DT   string    `yaml:"dt"`
	Data []float64 `yaml:"data"`
}

type calibrationFile struct {
	ImageWidth  int         `yaml:"image_width"`
	ImageHeight int         `yaml:"image_height"`
	Camera      *matrixNode `yaml:"camera_matrix"`
	Distortion  *matrixNode `yaml:"distortion_coefficients"`
}

var (
	// OpenCV writes a YAML 1.0 directive that yaml.v3 refuses.
	yamlDirective = regexp.MustCompile(`(?m)^%YAML[: ]\S*\s*$`)
	opencvTag     = regexp.MustCompile(`!!opencv-matrix`)
)

// ParseCalibration reads a calibration descriptor: the YAML written by
// OpenCV's calibration tools, or the same keys as plain YAML or JSON.
//
//	image_width: 640
//	image_height: 480
//	camera_matrix: !!opencv-matrix
//	  rows: 3
//	  cols: 3
//	  dt: d
//	  data: [ 700, 0, 320, 0, 700, 240, 0, 0, 1 ]
//	distortion_coefficients: !!opencv-matrix
//	  rows: 1
//	  cols: 5
//	  dt: d
//	  data: [ 0, 0, 0, 0, 0 ]
//
// The returned model has been validated.
func ParseCalibration(data []byte) (Model, error) {
	cleaned := yamlDirective.ReplaceAll(data, nil)
	cleaned = opencvTag.ReplaceAll(cleaned, nil)

	var file calibrationFile
	if err := yaml.Unmarshal(cleaned, &file); err != nil {
		return Model{}, errors.Wrap(err, "failed to parse calibration")
	}
	if file.Camera == nil {
		return Model{}, errors.New("calibration has no camera_matrix")
	}
	if err := file.Camera.check("camera_matrix", 9); err != nil {
		return Model{}, err
	}

	m := Model{Distortion: []float64{}, Width: file.ImageWidth, Height: file.ImageHeight}
	copy(m.Matrix[:], file.Camera.Data)
	if file.Distortion != nil {
		if err := file.Distortion.check("distortion_coefficients", -1); err != nil {
			return Model{}, err
		}
		m.Distortion = append(m.Distortion, file.Distortion.Data...)
	}
	if m.Width < 0 || m.Height < 0 {
		return Model{}, errors.Errorf("invalid image size %dx%d", m.Width, m.Height)
	}
	if err := m.Validate(); err != nil {
		return Model{}, err
	}
	return m, nil
}

// check verifies the declared shape against the data. want < 0 accepts any
// length.
func (n *matrixNode) check(name string, want int) error {
	if want >= 0 && len(n.Data) != want {
		return errors.Errorf("%s must have %d values, got %d", name, want, len(n.Data))
	}
	if n.Rows != 0 || n.Cols != 0 {
		if n.Rows*n.Cols != len(n.Data) {
			return errors.Errorf("%s declares %dx%d but has %d values", name, n.Rows, n.Cols, len(n.Data))
		}
	}
	return nil
}

// MarshalCalibration writes m in the OpenCV layout accepted by
// ParseCalibration.
func MarshalCalibration(m Model) ([]byte, error) {
	file := calibrationFile{
		ImageWidth:  m.Width,
		ImageHeight: m.Height,
		Camera:      &matrixNode{Rows: 3, Cols: 3, DT: "d", Data: m.Matrix[:]},
		Distortion:  &matrixNode{Rows: 1, Cols: len(m.Distortion), DT: "d", Data: m.Distortion},
	}
	out, err := yaml.Marshal(file)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode calibration")
	}
	return out, nil
}
