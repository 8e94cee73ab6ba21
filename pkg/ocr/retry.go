package ocr

import (
	"context"
	"log"
	"time"
)

type retrying struct {
	inner   Recognizer
	retries int
	backoff time.Duration
}

// WithRetry wraps rec so that transient failures (see Retryable) are retried
// up to retries times, waiting backoff*attempt between attempts.
func WithRetry(rec Recognizer, retries int, backoff time.Duration) Recognizer {
	if retries <= 0 {
		return rec
	}
	return &retrying{inner: rec, retries: retries, backoff: backoff}
}

func (r *retrying) Recognize(ctx context.Context, image []byte) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			log.Printf("OCR retry %d/%d after: %v", attempt, r.retries, lastErr)
			t := time.NewTimer(r.backoff * time.Duration(attempt))
			select {
			case <-ctx.Done():
				t.Stop()
				return "", lastErr
			case <-t.C:
			}
		}
		text, err := r.inner.Recognize(ctx, image)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !Retryable(err) || ctx.Err() != nil {
			return "", err
		}
	}
	return "", lastErr
}

func (r *retrying) Close() error { return Close(r.inner) }
