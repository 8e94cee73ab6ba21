// Package bot answers Telegram photos with the recharge codes found in them.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shnefix/Code-Extractor/pkg/extract"
	"github.com/shnefix/Code-Extractor/pkg/ocr"
)

const (
	usageText   = "Send a photo of a recharge card and I will reply with the codes on it."
	noCodesText = "No codes found"
)

// API is the part of *tgbotapi.BotAPI the router needs.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Router handles incoming updates.
type Router struct {
	Bot      API
	Pipeline *extract.Pipeline
	// Download fetches a file URL, reading at most limit+1 bytes when limit
	// is positive. Nil means an HTTP GET with a 60s timeout.
	Download func(ctx context.Context, url string, limit int64) ([]byte, error)
	MaxBytes int64
}

// HandleUpdate processes one update. Errors are reported to the chat.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil {
		return
	}
	cid := msg.Chat.ID
	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			r.send(cid, usageText)
		default:
			r.send(cid, "Unknown command")
		}
		return
	}
	fileID, name, ok := imageFile(msg)
	if !ok {
		r.send(cid, usageText)
		return
	}
	reply, err := r.extract(ctx, fileID, name)
	if err != nil {
		log.Printf("bot: chat %d: %v", cid, err)
		r.send(cid, "Error: "+errorText(err))
		return
	}
	r.send(cid, reply)
}

func (r *Router) extract(ctx context.Context, fileID, name string) (string, error) {
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("get file: %w", err)
	}
	dl := r.Download
	if dl == nil {
		dl = download
	}
	data, err := dl(ctx, url, r.MaxBytes)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	if r.MaxBytes > 0 && int64(len(data)) > r.MaxBytes {
		return "", fmt.Errorf("image too large (max %d bytes)", r.MaxBytes)
	}
	codes, err := r.Pipeline.ExtractBatch(ctx, []extract.Image{{Name: name, Data: data}})
	if err != nil {
		return "", err
	}
	return FormatCodes(codes), nil
}

// FormatCodes renders codes one per line.
func FormatCodes(codes []string) string {
	if len(codes) == 0 {
		return noCodesText
	}
	return strings.Join(codes, "\n")
}

// imageFile picks the largest photo size, or a document with an image MIME type.
func imageFile(msg *tgbotapi.Message) (fileID, name string, ok bool) {
	if n := len(msg.Photo); n > 0 {
		ph := msg.Photo[n-1]
		return ph.FileID, ph.FileUniqueID + ".jpg", true
	}
	if d := msg.Document; d != nil && strings.HasPrefix(d.MimeType, "image/") {
		return d.FileID, d.FileName, true
	}
	return "", "", false
}

func errorText(err error) string {
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

func (r *Router) send(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("bot: send to %d: %v", chatID, err)
	}
}

func download(ctx context.Context, url string, limit int64) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	var body io.Reader = resp.Body
	if limit > 0 {
		body = io.LimitReader(resp.Body, limit+1)
	}
	return io.ReadAll(body)
}
