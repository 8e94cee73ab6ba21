package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shnefix/Code-Extractor/pkg/ocr"

	"github.com/spf13/viper"
)

// Config holds every runtime setting of the service and its tools.
type Config struct {
	Port string

	OCRProvider     string
	CredentialsFile string
	TesseractLang   string
	GeminiAPIKey    string
	GeminiModel     string
	OCRTimeout      time.Duration
	OCRRetries      int
	OCRRetryBackoff time.Duration

	MaxImageBytes int64
	CORSOrigins   []string

	DBDSN         string
	DBAutoMigrate bool

	AuthEnabled bool
	JWTSecret   string
	TokenTTL    time.Duration
	SeedUsers   []UserSeed

	TelegramToken string
	Verbose       bool
}

// UserSeed is a login created at startup from SEED_USERS.
type UserSeed struct {
	Email    string
	Password string
}

const devJWTSecret = "dev-insecure-secret-change"

var defaults = map[string]any{
	"port":                           "5000",
	"ocr_provider":                   "vision",
	"google_application_credentials": "",
	"tesseract_lang":                 "eng",
	"gemini_api_key":                 "",
	"gemini_model":                   "gemini-2.5-flash",
	"ocr_timeout":                    "60s",
	"ocr_retries":                    2,
	"ocr_retry_backoff":              "500ms",
	"max_image_bytes":                10 << 20,
	"cors_origins":                   "*",
	"db_dsn":                         "",
	"db_auto_migrate":                true,
	"auth_enabled":                   false,
	"jwt_secret":                     "",
	"token_ttl":                      "24h",
	"seed_users":                     "",
	"telegram_bot_token":             "",
	"log_verbose":                    false,
}

// Load reads defaults, then ./.env if present, then the YAML file named by
// CONFIG_FILE, with environment variables taking precedence over both files.
func Load() (*Config, error) {
	return LoadFrom(".env", os.Getenv("CONFIG_FILE"))
}

// LoadFrom is Load with explicit file locations. Empty or missing files are skipped.
func LoadFrom(dotEnv, yamlFile string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if dotEnv != "" {
		if _, err := os.Stat(dotEnv); err == nil {
			v.SetConfigFile(dotEnv)
			v.SetConfigType("env")
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("read %s: %w", dotEnv, err)
			}
		}
	}
	if yamlFile != "" {
		v.SetConfigFile(yamlFile)
		v.SetConfigType("yaml")
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", yamlFile, err)
		}
	}

	cfg := &Config{
		Port:            strings.TrimSpace(v.GetString("port")),
		OCRProvider:     strings.ToLower(strings.TrimSpace(v.GetString("ocr_provider"))),
		CredentialsFile: v.GetString("google_application_credentials"),
		TesseractLang:   v.GetString("tesseract_lang"),
		GeminiAPIKey:    v.GetString("gemini_api_key"),
		GeminiModel:     v.GetString("gemini_model"),
		OCRTimeout:      v.GetDuration("ocr_timeout"),
		OCRRetries:      v.GetInt("ocr_retries"),
		OCRRetryBackoff: v.GetDuration("ocr_retry_backoff"),
		MaxImageBytes:   v.GetInt64("max_image_bytes"),
		CORSOrigins:     splitList(v.GetString("cors_origins")),
		DBDSN:           strings.TrimSpace(v.GetString("db_dsn")),
		DBAutoMigrate:   v.GetBool("db_auto_migrate"),
		AuthEnabled:     v.GetBool("auth_enabled"),
		JWTSecret:       v.GetString("jwt_secret"),
		TokenTTL:        v.GetDuration("token_ttl"),
		TelegramToken:   v.GetString("telegram_bot_token"),
		Verbose:         v.GetBool("log_verbose"),
	}
	seeds, err := parseSeedUsers(v.GetString("seed_users"))
	if err != nil {
		return nil, err
	}
	cfg.SeedUsers = seeds
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = devJWTSecret // development fallback
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	switch c.OCRProvider {
	case ocr.ProviderVision, ocr.ProviderTesseract, ocr.ProviderGemini:
	default:
		return fmt.Errorf("OCR_PROVIDER %q: want vision, tesseract or gemini", c.OCRProvider)
	}
	if c.Port == "" {
		return errors.New("PORT is empty")
	}
	if c.MaxImageBytes <= 0 {
		return errors.New("MAX_IMAGE_BYTES must be positive")
	}
	if c.OCRRetries < 0 {
		return errors.New("OCR_RETRIES must not be negative")
	}
	if c.AuthEnabled && c.DBDSN == "" {
		return errors.New("AUTH_ENABLED requires DB_DSN")
	}
	if c.AuthEnabled && (c.JWTSecret == "" || c.JWTSecret == devJWTSecret) {
		return errors.New("AUTH_ENABLED requires JWT_SECRET")
	}
	for _, o := range c.CORSOrigins {
		if o == "*" {
			continue
		}
		if !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("CORS_ORIGINS entry %q: want * or an http(s):// origin", o)
		}
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return ":" + c.Port }

// OCR returns the recognizer options for ocr.New.
func (c *Config) OCR() ocr.Options {
	return ocr.Options{
		Provider:        c.OCRProvider,
		CredentialsFile: c.CredentialsFile,
		TesseractLang:   c.TesseractLang,
		GeminiAPIKey:    c.GeminiAPIKey,
		GeminiModel:     c.GeminiModel,
		Verbose:         c.Verbose,
		Retries:         c.OCRRetries,
		RetryBackoff:    c.OCRRetryBackoff,
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseSeedUsers reads "email:password,email2:password2".
func parseSeedUsers(s string) ([]UserSeed, error) {
	var out []UserSeed
	for _, item := range splitList(s) {
		email, pw, ok := strings.Cut(item, ":")
		email = strings.TrimSpace(email)
		if !ok || email == "" || pw == "" {
			return nil, fmt.Errorf("SEED_USERS entry %q: want email:password", item)
		}
		out = append(out, UserSeed{Email: email, Password: pw})
	}
	return out, nil
}
