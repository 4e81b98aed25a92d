package tracker

// The configuration calls below forward to the store. They may run while a
// pass is in flight; the pass keeps the snapshot it started with.

// SetFilter sets persistence and gain for both the corner and pose filters.
func (t *Tracker) SetFilter(persistence, gain float64) error {
	return t.store.SetFilter(persistence, gain)
}

// Set2DFilter sets persistence and gain for the corner filter used by Find.
func (t *Tracker) Set2DFilter(persistence, gain float64) error {
	return t.store.Set2DFilter(persistence, gain)
}

// Set3DFilter sets persistence and gain for the pose filter used by Estimate.
func (t *Tracker) Set3DFilter(persistence, gain float64) error {
	return t.store.Set3DFilter(persistence, gain)
}

// ReadTagConfiguration replaces the tag layout.
func (t *Tracker) ReadTagConfiguration(data []byte, omitOthers bool) error {
	return t.store.ReadTagConfiguration(data, omitOthers)
}

// SetDefaultTagSize sets the side of tags missing from the layout.
func (t *Tracker) SetDefaultTagSize(size float64) error {
	return t.store.SetDefaultTagSize(size)
}

// ReadCalibration replaces the camera model.
func (t *Tracker) ReadCalibration(data []byte) error {
	return t.store.ReadCalibration(data)
}

// CameraMatrix returns the intrinsic matrix, row-major.
func (t *Tracker) CameraMatrix() [9]float64 {
	return t.store.CameraMatrix()
}

// DistortionCoeffs returns the distortion coefficients.
func (t *Tracker) DistortionCoeffs() []float64 {
	return t.store.DistortionCoeffs()
}
