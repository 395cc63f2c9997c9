package entity

import "errors"

var (
	ErrModelLoadFailed            = errors.New("model load failed")
	ErrNoModelsLoaded             = errors.New("no models loaded")
	ErrNoImageProvided            = errors.New("no image provided")
	ErrCapabilityInvocationFailed = errors.New("capability invocation failed")
	ErrCameraPermissionDenied     = errors.New("camera permission denied")
	ErrCameraUnavailable          = errors.New("camera unavailable")
)

// UserMessage короткое сообщение об ошибке для области отчёта
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrModelLoadFailed):
		return "Error loading models. Please try again."
	case errors.Is(err, ErrNoModelsLoaded):
		return "Please load models first!"
	case errors.Is(err, ErrNoImageProvided):
		return "Please upload an image!"
	case errors.Is(err, ErrCapabilityInvocationFailed):
		return "Error during prediction. Please check the console for more details."
	case errors.Is(err, ErrCameraPermissionDenied):
		return "Camera access was denied."
	case errors.Is(err, ErrCameraUnavailable):
		return "Camera is not available."
	default:
		return "Something went wrong. Please try again."
	}
}
