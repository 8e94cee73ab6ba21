package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shnefix/Code-Extractor/pkg/extract"
	"github.com/shnefix/Code-Extractor/pkg/ocr"
)

type fakeAPI struct {
	sent []string
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	return "https://files.test/" + fileID, nil
}

func newRouter(api *fakeAPI, text string, err error) *Router {
	return &Router{
		Bot: api,
		Pipeline: extract.NewPipeline(ocr.RecognizerFunc(func(context.Context, []byte) (string, error) {
			return text, err
		})),
		Download: func(_ context.Context, url string, _ int64) ([]byte, error) { return []byte(url), nil },
	}
}

func photoUpdate() tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:  &tgbotapi.Chat{ID: 42},
		Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large", FileUniqueID: "u1"}},
	}}
}

func TestHandlePhotoRepliesWithCodes(t *testing.T) {
	api := &fakeAPI{}
	newRouter(api, "1234 5678 9012 3456\n1234567890123456", nil).HandleUpdate(context.Background(), photoUpdate())
	if len(api.sent) != 1 || api.sent[0] != "1234567890123456" {
		t.Fatalf("sent = %q", api.sent)
	}
}

func TestHandlePhotoNoCodes(t *testing.T) {
	api := &fakeAPI{}
	newRouter(api, "hello", nil).HandleUpdate(context.Background(), photoUpdate())
	if len(api.sent) != 1 || api.sent[0] != noCodesText {
		t.Fatalf("sent = %q", api.sent)
	}
}

func TestHandlePhotoDelegateError(t *testing.T) {
	api := &fakeAPI{}
	newRouter(api, "", &ocr.DelegateError{Provider: "Vision", Message: "Bad image data"}).
		HandleUpdate(context.Background(), photoUpdate())
	if len(api.sent) != 1 || api.sent[0] != "Error: Vision API error: Bad image data" {
		t.Fatalf("sent = %q", api.sent)
	}
}

func TestHandleTextSendsUsage(t *testing.T) {
	api := &fakeAPI{}
	upd := tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}, Text: "hi"}}
	newRouter(api, "", nil).HandleUpdate(context.Background(), upd)
	if len(api.sent) != 1 || api.sent[0] != usageText {
		t.Fatalf("sent = %q", api.sent)
	}
}

func TestImageFileFromDocument(t *testing.T) {
	msg := &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "d1", FileName: "card.png", MimeType: "image/png"}}
	id, name, ok := imageFile(msg)
	if !ok || id != "d1" || name != "card.png" {
		t.Fatalf("imageFile = %q %q %v", id, name, ok)
	}
	msg.Document.MimeType = "application/pdf"
	if _, _, ok := imageFile(msg); ok {
		t.Fatal("pdf should not be accepted")
	}
}

func TestFormatCodes(t *testing.T) {
	if FormatCodes(nil) != noCodesText {
		t.Fatal("empty list")
	}
	if FormatCodes([]string{"a", "b"}) != "a\nb" {
		t.Fatal("join")
	}
}

func TestRetryDelay(t *testing.T) {
	if d := retryDelay(errors.New("Too Many Requests: retry after 7")); d.Seconds() != 7 {
		t.Fatalf("delay = %v", d)
	}
	if d := retryDelay(errors.New("boom")); d.Seconds() != 1 {
		t.Fatalf("delay = %v", d)
	}
}

func TestHandlePhotoTooLarge(t *testing.T) {
	api := &fakeAPI{}
	r := newRouter(api, "1234567890123456", nil)
	r.MaxBytes = 4
	var gotLimit int64
	r.Download = func(_ context.Context, _ string, limit int64) ([]byte, error) {
		gotLimit = limit
		return []byte("0123456789"), nil
	}
	r.HandleUpdate(context.Background(), photoUpdate())
	if gotLimit != 4 {
		t.Fatalf("download limit = %d", gotLimit)
	}
	if len(api.sent) != 1 || api.sent[0] != "Error: image too large (max 4 bytes)" {
		t.Fatalf("sent = %q", api.sent)
	}
}

func TestDownloadStopsAfterLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(strings.Repeat("x", 1000)))
	}))
	defer srv.Close()

	data, err := download(context.Background(), srv.URL, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 11 {
		t.Fatalf("read %d bytes, want 11", len(data))
	}
	data, err = download(context.Background(), srv.URL, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 1000 {
		t.Fatalf("read %d bytes without a limit", len(data))
	}
}

func TestDownloadStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()
	if _, err := download(context.Background(), srv.URL, 10); err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("err = %v", err)
	}
}
