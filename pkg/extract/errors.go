package extract

import (
	"errors"
	"fmt"
)

// ErrNoImages is returned when a batch carries no images.
var ErrNoImages = errors.New("no images to process")

// ImageError reports which image of a batch aborted it.
type ImageError struct {
	Index int
	Name  string
	Err   error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }
