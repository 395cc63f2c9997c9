package camera

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"hazard-vision/internal/domain/entity"
)

// Options параметры устройства захвата
type Options struct {
	Device int
	Width  int
	Height int
}

// devicePath путь к узлу V4L2 для номера устройства
func devicePath(device int) string {
	return fmt.Sprintf("/dev/video%d", device)
}

// probe проверяет доступ к узлу устройства до открытия захвата
func probe(device int) error {
	f, err := os.Open(devicePath(device))
	if err != nil {
		return classify(err)
	}
	return f.Close()
}

// classify сводит ошибку открытия к ошибкам домена
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, entity.ErrCameraPermissionDenied), errors.Is(err, entity.ErrCameraUnavailable):
		return err
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", entity.ErrCameraPermissionDenied, err)
	default:
		return fmt.Errorf("%w: %v", entity.ErrCameraUnavailable, err)
	}
}
