package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shnefix/Code-Extractor/models"
	"github.com/shnefix/Code-Extractor/pkg/extract"
	"github.com/shnefix/Code-Extractor/pkg/ocr"
	"github.com/shnefix/Code-Extractor/pkg/store"

	"github.com/gin-gonic/gin"
)

// bytesAsText is a recognizer that returns the image bytes as the text. The
// image "broken" fails like a bad upload would.
type bytesAsText struct {
	mu    sync.Mutex
	calls []string
}

func (r *bytesAsText) Recognize(_ context.Context, image []byte) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, string(image))
	r.mu.Unlock()
	if string(image) == "broken" {
		return "", &ocr.DelegateError{Provider: "Vision", Message: "Bad image data"}
	}
	return string(image), nil
}

type memHistory struct {
	items []models.Extraction
	err   error
}

func (h *memHistory) Record(_ context.Context, e *models.Extraction) error {
	if h.err != nil {
		return h.err
	}
	e.ID = uint(len(h.items) + 1)
	h.items = append(h.items, *e)
	return nil
}

func (h *memHistory) List(_ context.Context, limit int) ([]models.Extraction, error) {
	var out []models.Extraction
	for i := len(h.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.items[i])
	}
	return out, nil
}

type staticUsers map[string]string

func (u staticUsers) Authenticate(_ context.Context, email, password string) (*models.User, error) {
	if pw, ok := u[email]; ok && pw == password {
		return &models.User{ID: 1, Email: email}, nil
	}
	return nil, store.ErrInvalidCredentials
}

func newTestServer(rec ocr.Recognizer) *server {
	gin.SetMode(gin.TestMode)
	m := newMetrics()
	return &server{
		pipeline:      extract.NewPipeline(m.instrument("vision", rec)),
		metrics:       m,
		maxImageBytes: 1 << 20,
		jwtSecret:     []byte("test-secret"),
		tokenTTL:      time.Hour,
	}
}

type upload struct {
	name string
	body string
}

func multipartBody(t *testing.T, field string, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.name))
		h.Set("Content-Type", "application/octet-stream")
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(part, f.body); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", resp.Body.String(), err)
	}
	return out
}

func TestIndex(t *testing.T) {
	r := newRouter(newTestServer(&bytesAsText{}), nil)
	resp := performRequest(r, http.MethodGet, "/", nil, "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if msg := decodeJSON(t, resp)["message"]; msg != "Code extractor backend is running" {
		t.Fatalf("message = %v", msg)
	}
	if resp.Header().Get(headerRequestID) == "" {
		t.Fatal("missing request id header")
	}
}

func TestExtractSuccess(t *testing.T) {
	rec := &bytesAsText{}
	r := newRouter(newTestServer(rec), nil)
	body, ct := multipartBody(t, "images",
		upload{"one.png", "Card 1234567890123456\nT123456789012345"},
		upload{"two.png", "1234567890123456\nPIN 5678 123 4567 8901"},
	)
	resp := performRequest(r, http.MethodPost, "/extract", body, "", ct)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", resp.Code, resp.Body.String())
	}
	var out extractResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	want := []string{"1234567890123456", "T123456789012345", "567812345678901"}
	if strings.Join(out.Codes, ",") != strings.Join(want, ",") {
		t.Fatalf("codes = %v, want %v", out.Codes, want)
	}
}

func TestExtractNoCodesReturnsEmptyList(t *testing.T) {
	r := newRouter(newTestServer(&bytesAsText{}), nil)
	body, ct := multipartBody(t, "images", upload{"blank.png", ""})
	resp := performRequest(r, http.MethodPost, "/extract", body, "", ct)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if got := strings.TrimSpace(resp.Body.String()); got != `{"codes":[]}` {
		t.Fatalf("body = %s", got)
	}
}

func TestExtractBadRequests(t *testing.T) {
	r := newRouter(newTestServer(&bytesAsText{}), nil)

	resp := performRequest(r, http.MethodPost, "/extract", strings.NewReader("{}"), "", "application/json")
	if resp.Code != http.StatusBadRequest || decodeJSON(t, resp)["error"] != "No images uploaded" {
		t.Fatalf("not multipart: %d %s", resp.Code, resp.Body.String())
	}

	body, ct := multipartBody(t, "photos", upload{"a.png", "x"})
	resp = performRequest(r, http.MethodPost, "/extract", body, "", ct)
	if resp.Code != http.StatusBadRequest || decodeJSON(t, resp)["error"] != "No images uploaded" {
		t.Fatalf("wrong field: %d %s", resp.Code, resp.Body.String())
	}

	body, ct = multipartBody(t, "images", upload{"", "x"})
	resp = performRequest(r, http.MethodPost, "/extract", body, "", ct)
	if resp.Code != http.StatusBadRequest || decodeJSON(t, resp)["error"] != "No selected files" {
		t.Fatalf("empty filename: %d %s", resp.Code, resp.Body.String())
	}

	body, ct = multipartBody(t, "images", upload{"a.png", "1234567890123456"})
	resp = performRequest(r, http.MethodPost, "/extract?format=xml", body, "", ct)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad format: %d", resp.Code)
	}
}

func TestExtractTooLarge(t *testing.T) {
	s := newTestServer(&bytesAsText{})
	s.maxImageBytes = 4
	r := newRouter(s, nil)
	body, ct := multipartBody(t, "images", upload{"big.png", "0123456789"})
	resp := performRequest(r, http.MethodPost, "/extract", body, "", ct)
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "too large") {
		t.Fatalf("status = %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestExtractDelegateErrorAbortsBatch(t *testing.T) {
	rec := &bytesAsText{}
	r := newRouter(newTestServer(rec), nil)
	body, ct := multipartBody(t, "images",
		upload{"a.png", "1234567890123456"},
		upload{"b.png", "broken"},
		upload{"c.png", "T123456789012345"},
	)
	resp := performRequest(r, http.MethodPost, "/extract", body, "", ct)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.Code)
	}
	out := decodeJSON(t, resp)
	if out["error"] != "Vision API error: Bad image data" {
		t.Fatalf("error = %v", out["error"])
	}
	if _, ok := out["codes"]; ok {
		t.Fatal("failed batch must not return codes")
	}
	if len(rec.calls) != 2 {
		t.Fatalf("recognizer calls = %v", rec.calls)
	}
}

func TestExtractExportFormats(t *testing.T) {
	r := newRouter(newTestServer(&bytesAsText{}), nil)
	body, ct := multipartBody(t, "images", upload{"a.png", "1234567890123456\n12345678901234"})
	resp := performRequest(r, http.MethodPost, "/extract?format=csv", body, "", ct)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if cd := resp.Header().Get("Content-Disposition"); !strings.Contains(cd, "extracted_codes.csv") {
		t.Fatalf("content disposition = %q", cd)
	}
	if resp.Body.String() != "Code\n1234567890123456\n12345678901234\n" {
		t.Fatalf("csv = %q", resp.Body.String())
	}

	body, ct = multipartBody(t, "images", upload{"a.png", "1234567890123456"})
	resp = performRequest(r, http.MethodPost, "/extract?format=txt", body, "", ct)
	if resp.Body.String() != "1234567890123456" {
		t.Fatalf("txt = %q", resp.Body.String())
	}
}

func TestHistory(t *testing.T) {
	s := newTestServer(&bytesAsText{})
	r := newRouter(s, nil)
	resp := performRequest(r, http.MethodGet, "/extractions", nil, "", "")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("without db status = %d", resp.Code)
	}

	h := &memHistory{}
	s.history = h
	body, ct := multipartBody(t, "images", upload{"../card one.png", "1234567890123456"})
	if resp := performRequest(r, http.MethodPost, "/extract", body, "", ct); resp.Code != http.StatusOK {
		t.Fatalf("extract status = %d", resp.Code)
	}
	if len(h.items) != 1 || h.items[0].FileNames[0] != "card_one.png" || h.items[0].CodeCount != 1 {
		t.Fatalf("history = %+v", h.items)
	}

	resp = performRequest(r, http.MethodGet, "/extractions?limit=5", nil, "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("list status = %d", resp.Code)
	}
	var out extractionsResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil || len(out.Extractions) != 1 {
		t.Fatalf("list = %s", resp.Body.String())
	}
	if resp := performRequest(r, http.MethodGet, "/extractions?limit=abc", nil, "", ""); resp.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", resp.Code)
	}
}

func TestHistoryWriteFailureDoesNotFailRequest(t *testing.T) {
	s := newTestServer(&bytesAsText{})
	s.history = &memHistory{err: fmt.Errorf("db down")}
	r := newRouter(s, nil)
	body, ct := multipartBody(t, "images", upload{"a.png", "1234567890123456"})
	if resp := performRequest(r, http.MethodPost, "/extract", body, "", ct); resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(&bytesAsText{})
	s.authEnabled = true
	s.users = staticUsers{"ops@example.test": "secret1"}
	r := newRouter(s, nil)

	body, ct := multipartBody(t, "images", upload{"a.png", "1234567890123456"})
	if resp := performRequest(r, http.MethodPost, "/extract", body, "", ct); resp.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", resp.Code)
	}

	bad, _ := json.Marshal(loginRequest{Email: "ops@example.test", Password: "nope"})
	if resp := performRequest(r, http.MethodPost, "/login", bytes.NewReader(bad), "", "application/json"); resp.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", resp.Code)
	}

	good, _ := json.Marshal(loginRequest{Email: "ops@example.test", Password: "secret1"})
	resp := performRequest(r, http.MethodPost, "/login", bytes.NewReader(good), "", "application/json")
	if resp.Code != http.StatusOK {
		t.Fatalf("login status = %d body=%s", resp.Code, resp.Body.String())
	}
	var lr loginResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &lr); err != nil || lr.Token == "" {
		t.Fatalf("login response = %s", resp.Body.String())
	}

	body, ct = multipartBody(t, "images", upload{"a.png", "1234567890123456"})
	if resp := performRequest(r, http.MethodPost, "/extract", body, lr.Token, ct); resp.Code != http.StatusOK {
		t.Fatalf("with token status = %d body=%s", resp.Code, resp.Body.String())
	}
	if resp := performRequest(r, http.MethodGet, "/extractions", nil, "garbage", ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d", resp.Code)
	}
}

func TestExpiredToken(t *testing.T) {
	s := newTestServer(&bytesAsText{})
	s.authEnabled = true
	s.users = staticUsers{}
	token, _, err := s.issueToken("ops@example.test", time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	r := newRouter(s, nil)
	if resp := performRequest(r, http.MethodGet, "/extractions", nil, token, ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expired token status = %d", resp.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newRouter(newTestServer(&bytesAsText{}), nil)
	body, ct := multipartBody(t, "images", upload{"a.png", "broken"})
	performRequest(r, http.MethodPost, "/extract", body, "", ct)
	resp := performRequest(r, http.MethodGet, "/metrics", nil, "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	text := resp.Body.String()
	for _, name := range []string{"codeextractor_images_total", `codeextractor_delegate_errors_total{provider="vision"} 1`} {
		if !strings.Contains(text, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestHealthz(t *testing.T) {
	r := newRouter(newTestServer(&bytesAsText{}), nil)
	resp := performRequest(r, http.MethodGet, "/healthz", nil, "", "")
	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", resp.Code, resp.Body.String())
	}
}

func TestSecureFilename(t *testing.T) {
	cases := map[string]string{
		"card.png":          "card.png",
		"../../etc/passwd":  "etc_passwd",
		"my card (1).jpg":   "my_card_1.jpg",
		"..":                "",
		`C:\\photos\\a.png`: "C_photos_a.png",
	}
	for in, want := range cases {
		if got := secureFilename(in); got != want {
			t.Errorf("secureFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
