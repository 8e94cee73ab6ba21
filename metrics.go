package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shnefix/Code-Extractor/pkg/ocr"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry       *prometheus.Registry
	images         prometheus.Counter
	codes          prometheus.Counter
	requests       *prometheus.CounterVec
	delegateErrors *prometheus.CounterVec
	ocrDuration    *prometheus.HistogramVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	m := &metrics{
		registry: reg,
		images: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codeextractor_images_total",
			Help: "Images processed by successful extractions.",
		}),
		codes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codeextractor_codes_total",
			Help: "Unique codes returned by successful extractions.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codeextractor_extract_requests_total",
			Help: "Extraction requests by result.",
		}, []string{"result"}),
		delegateErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codeextractor_delegate_errors_total",
			Help: "Errors returned by the OCR provider.",
		}, []string{"provider"}),
		ocrDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codeextractor_ocr_duration_seconds",
			Help:    "Time spent in one OCR call.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"provider"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.images, m.codes, m.requests, m.delegateErrors, m.ocrDuration,
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) observeBatch(images, codes int) {
	m.requests.WithLabelValues("ok").Inc()
	m.images.Add(float64(images))
	m.codes.Add(float64(codes))
}

func (m *metrics) observeFailure(result string) {
	m.requests.WithLabelValues(result).Inc()
}

// instrument wraps rec so every call is timed and delegate errors are counted.
func (m *metrics) instrument(provider string, rec ocr.Recognizer) ocr.Recognizer {
	return &instrumentedRecognizer{next: rec, provider: provider, m: m}
}

type instrumentedRecognizer struct {
	next     ocr.Recognizer
	provider string
	m        *metrics
}

func (r *instrumentedRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	start := time.Now()
	text, err := r.next.Recognize(ctx, image)
	r.m.ocrDuration.WithLabelValues(r.provider).Observe(time.Since(start).Seconds())
	var de *ocr.DelegateError
	if errors.As(err, &de) {
		r.m.delegateErrors.WithLabelValues(r.provider).Inc()
	}
	return text, err
}

func (r *instrumentedRecognizer) Close() error { return ocr.Close(r.next) }
