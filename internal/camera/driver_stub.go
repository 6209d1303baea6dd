//go:build !linux

package camera

// stubDriver reports the missing-capability error on platforms without a
// V4L2 stack. The web UI surfaces it through the usual classification path.
type stubDriver struct{}

// NewDriver returns the platform video driver.
func NewDriver() Driver {
	return stubDriver{}
}

func (stubDriver) Enumerate() ([]string, error) {
	return nil, ErrNoCapability
}

func (stubDriver) Open(Constraints) (Device, error) {
	return nil, ErrNoCapability
}
