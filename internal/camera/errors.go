package camera

import "errors"

// Acquisition and capture error classes. The fallback ladder in Acquire only
// continues past constraint-negotiation failures; every other class aborts the
// whole sequence.
var (
	// ErrNoCapability means the runtime cannot do video capture at all
	// (non-Linux build, V4L2 subsystem missing). Fatal, never retried.
	ErrNoCapability = errors.New("camera: video capture not supported on this platform")

	// ErrPermission means a device exists but access was denied. Surfaced
	// with a retry affordance; a retry is a fresh acquisition attempt.
	ErrPermission = errors.New("camera: permission denied")

	// ErrNoDevice means no video input device was enumerated. Fatal until
	// external device state changes.
	ErrNoDevice = errors.New("camera: no video device found")

	// ErrConstraint means one constraint set was rejected during
	// negotiation. Recovered locally by falling back to a looser set; only
	// exhausting every fallback surfaces it.
	ErrConstraint = errors.New("camera: constraints not satisfied")

	// ErrFrameTimeout means the device produced no frame within the read
	// timeout.
	ErrFrameTimeout = errors.New("camera: timed out waiting for frame")

	// ErrNoFrame means a frame read failed or yielded no usable image at
	// capture time.
	ErrNoFrame = errors.New("camera: no frame available")

	// ErrReleased means the handle was released while an operation was in
	// flight.
	ErrReleased = errors.New("camera: handle released")
)

// Classify maps an error from acquisition or capture to the user-visible
// message set. Unrecognized causes fall back to a generic message.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoCapability):
		return "Camera capture is not supported on this system."
	case errors.Is(err, ErrPermission):
		return "Camera access denied. Check device permissions and retry."
	case errors.Is(err, ErrNoDevice):
		return "No camera found. Connect a camera and retry."
	case errors.Is(err, ErrConstraint):
		return "The camera does not support the requested settings."
	case errors.Is(err, ErrFrameTimeout), errors.Is(err, ErrNoFrame):
		return "The camera did not deliver a picture. Please retry."
	default:
		return "Could not start the camera. Please retry."
	}
}
