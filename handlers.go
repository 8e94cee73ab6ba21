package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shnefix/Code-Extractor/models"
	"github.com/shnefix/Code-Extractor/pkg/export"
	"github.com/shnefix/Code-Extractor/pkg/extract"
	"github.com/shnefix/Code-Extractor/pkg/ocr"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	uploadField        = "images"
	defaultHistorySize = 50
	maxHistorySize     = 200
	headerRequestID    = "X-Request-ID"
	ctxRequestID       = "request_id"
)

// historyStore persists successful extractions. *store.History implements it.
type historyStore interface {
	Record(ctx context.Context, e *models.Extraction) error
	List(ctx context.Context, limit int) ([]models.Extraction, error)
}

type server struct {
	pipeline      *extract.Pipeline
	metrics       *metrics
	maxImageBytes int64

	// history is nil when no database is configured.
	history historyStore

	authEnabled bool
	users       authenticator
	jwtSecret   []byte
	tokenTTL    time.Duration
}

var (
	errNoUploads     = errors.New("No images uploaded")
	errNoSelected    = errors.New("No selected files")
	errImageTooLarge = errors.New("image too large")
)

func newRouter(s *server, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), requestIDMiddleware(), corsMiddleware(corsOrigins))
	setupRoutes(r, s)
	return r
}

func setupRoutes(r *gin.Engine, s *server) {
	r.GET("/", indexHandler)
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(s.metrics.handler()))
	if s.authEnabled {
		r.POST("/login", s.loginHandler)
	}
	authGroup := r.Group("")
	authGroup.Use(s.authMiddleware())
	authGroup.POST("/extract", s.extractHandler)
	authGroup.GET("/extractions", s.listExtractionsHandler)
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string { return c.GetString(ctxRequestID) }

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", headerRequestID},
		ExposeHeaders: []string{headerRequestID, "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func indexHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Code extractor backend is running"})
}

// extractHandler runs the uploaded images through the pipeline and returns
// the unique codes found in all of them.
func (s *server) extractHandler(c *gin.Context) {
	rid := requestID(c)
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		s.metrics.observeFailure("bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	images, err := s.readUploads(c)
	if err != nil {
		s.metrics.observeFailure("bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	codes, err := s.pipeline.ExtractBatch(c.Request.Context(), images)
	if err != nil {
		s.metrics.observeFailure("error")
		log.Printf("[%s] extraction failed: %v", rid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": failureMessage(err)})
		return
	}
	s.metrics.observeBatch(len(images), len(codes))
	log.Printf("[%s] extracted %d codes from %d images", rid, len(codes), len(images))
	s.recordHistory(c, images, codes)

	if format == export.JSON {
		c.JSON(http.StatusOK, extractResponse{Codes: codes})
		return
	}
	body, err := export.Render(format, codes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename()))
	c.Data(http.StatusOK, format.ContentType(), body)
}

// readUploads loads every file of the images field into memory, in upload
// order. Parts without a filename are skipped.
func (s *server) readUploads(c *gin.Context) ([]extract.Image, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, errNoUploads
	}
	headers, ok := form.File[uploadField]
	if !ok {
		// parts sent without a filename are parsed as plain values
		if _, ok := form.Value[uploadField]; ok {
			return nil, errNoSelected
		}
		return nil, errNoUploads
	}
	images := make([]extract.Image, 0, len(headers))
	for i, fh := range headers {
		if fh.Filename == "" {
			continue
		}
		name := secureFilename(fh.Filename)
		if name == "" {
			name = "image-" + strconv.Itoa(i+1)
		}
		if s.maxImageBytes > 0 && fh.Size > s.maxImageBytes {
			return nil, fmt.Errorf("%w: %s (max %d bytes)", errImageTooLarge, name, s.maxImageBytes)
		}
		data, err := readUpload(fh)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		images = append(images, extract.Image{Name: name, Data: data})
	}
	if len(images) == 0 {
		return nil, errNoSelected
	}
	return images, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// failureMessage is the error text returned to the client: the provider's
// message for delegate errors, the underlying error otherwise.
func failureMessage(err error) string {
	var de *ocr.DelegateError
	if errors.As(err, &de) {
		return de.Error()
	}
	var ie *extract.ImageError
	if errors.As(err, &ie) {
		return ie.Err.Error()
	}
	return err.Error()
}

func (s *server) recordHistory(c *gin.Context, images []extract.Image, codes []string) {
	if s.history == nil {
		return
	}
	names := make([]string, len(images))
	for i, img := range images {
		names[i] = img.Name
	}
	rec := &models.Extraction{
		RequestID:  requestID(c),
		UserEmail:  c.GetString(ctxEmail),
		ImageCount: len(images),
		FileNames:  names,
		Codes:      codes,
		CodeCount:  len(codes),
	}
	if err := s.history.Record(c.Request.Context(), rec); err != nil {
		log.Printf("[%s] history write failed: %v", rec.RequestID, err)
	}
}

func (s *server) listExtractionsHandler(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is disabled (DB_DSN not set)"})
		return
	}
	limit := defaultHistorySize
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistorySize)
	}
	items, err := s.history.List(c.Request.Context(), limit)
	if err != nil {
		log.Printf("[%s] history query failed: %v", requestID(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history query failed"})
		return
	}
	if items == nil {
		items = []models.Extraction{}
	}
	c.JSON(http.StatusOK, extractionsResponse{Extractions: items})
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// secureFilename reduces a client filename to a safe ASCII base name.
func secureFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}
