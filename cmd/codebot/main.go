// Command codebot is a Telegram bot that replies to card photos with the
// recharge codes printed on them.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shnefix/Code-Extractor/pkg/bot"
	"github.com/shnefix/Code-Extractor/pkg/config"
	"github.com/shnefix/Code-Extractor/pkg/extract"
	"github.com/shnefix/Code-Extractor/pkg/ocr"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is not set")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := ocr.New(ctx, cfg.OCR())
	if err != nil {
		log.Fatalf("ocr: %v", err)
	}
	defer ocr.Close(rec)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatal(err)
	}
	api.Debug = cfg.Verbose
	log.Printf("authorized as @%s", api.Self.UserName)

	r := &bot.Router{
		Bot:      api,
		Pipeline: extract.NewPipeline(rec, extract.WithTimeout(cfg.OCRTimeout), extract.WithVerbose(cfg.Verbose)),
		MaxBytes: cfg.MaxImageBytes,
	}
	bot.Run(ctx, api, r.HandleUpdate)
}
