package ocr

import (
	"context"
	"errors"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrEmptyImage is returned when Recognize gets no bytes.
	ErrEmptyImage = errors.New("empty image")
	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown OCR provider")
	// ErrTesseractUnavailable is returned when the binary was built without cgo.
	ErrTesseractUnavailable = errors.New("tesseract support requires a cgo build")
)

// DelegateError is a failure the OCR service reported for one image.
// Message is the service's own diagnostic text.
type DelegateError struct {
	Provider string
	Message  string
}

func (e *DelegateError) Error() string {
	return e.Provider + " API error: " + e.Message
}

// Retryable reports whether err looks transient: a network failure, a
// per-attempt deadline, a gRPC Unavailable-like status or an HTTP 429/5xx.
// Errors the service reported for the image itself are never retryable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var de *DelegateError
	if errors.As(err, &de) {
		return false
	}
	if errors.Is(err, ErrEmptyImage) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal:
			return true
		}
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	return false
}
