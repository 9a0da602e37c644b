package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultMissThreshold  = 2000
	DefaultTopicListLimit = 100
	DefaultSessionPath    = "session.json"
	DefaultNotifyBase     = "https://api.telegram.org"
)

// Config holds everything the migrator needs for one run. It is built once at startup and passed by value.
type Config struct {
	APIID       int
	APIHash     string
	Phone       string
	Password    string
	SessionPath string

	SourceChannelID int64
	TargetChannelID int64
	StartPostID     int
	// MaxPostID bounds the scan when positive. Zero leaves it unbounded so only the miss threshold ends it.
	MaxPostID      int
	MissThreshold  int
	TopicListLimit int
	IconEmojiID    int64

	StatusAddr string

	NotifyBase     string
	NotifyBotToken string
	NotifyChatID   string

	LogLevel string
	LogFile  string
}

// Load reads a .env file if present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from a lookup function. All missing or malformed values are reported together.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	p := parser{lookup: lookup}

	cfg := Config{
		APIID:           p.requiredInt("API_ID"),
		APIHash:         p.required("API_HASH"),
		Phone:           p.required("PHONE"),
		Password:        p.get("TG_PASSWORD", ""),
		SessionPath:     p.get("SESSION_PATH", DefaultSessionPath),
		SourceChannelID: p.requiredInt64("SOURCE_CHANNEL_ID"),
		TargetChannelID: p.requiredInt64("TARGET_CHANNEL_ID"),
		StartPostID:     p.requiredInt("POST_ID"),
		MaxPostID:       p.optionalInt("MAX_POST_ID", 0),
		MissThreshold:   p.optionalInt("MISS_THRESHOLD", DefaultMissThreshold),
		TopicListLimit:  p.optionalInt("TOPIC_LIST_LIMIT", DefaultTopicListLimit),
		IconEmojiID:     p.requiredInt64("ICON_EMOJI_ID"),
		StatusAddr:      p.get("STATUS_ADDR", ""),
		NotifyBase:      p.get("NOTIFY_BASE", DefaultNotifyBase),
		NotifyBotToken:  p.get("NOTIFY_BOT_TOKEN", ""),
		NotifyChatID:    p.get("NOTIFY_CHAT_ID", ""),
		LogLevel:        p.get("LOG_LEVEL", "info"),
		LogFile:         p.get("LOG_FILE", ""),
	}
	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. It is run again after CLI overrides are applied.
func (c Config) Validate() error {
	var errs []error
	if c.StartPostID < 1 {
		errs = append(errs, fmt.Errorf("POST_ID must be positive, got %d", c.StartPostID))
	}
	if c.MaxPostID != 0 && c.MaxPostID < c.StartPostID {
		errs = append(errs, fmt.Errorf("MAX_POST_ID %d is below POST_ID %d", c.MaxPostID, c.StartPostID))
	}
	if c.MissThreshold < 1 {
		errs = append(errs, fmt.Errorf("MISS_THRESHOLD must be positive, got %d", c.MissThreshold))
	}
	if c.TopicListLimit < 1 {
		errs = append(errs, fmt.Errorf("TOPIC_LIST_LIMIT must be positive, got %d", c.TopicListLimit))
	}
	if (c.NotifyBotToken == "") != (c.NotifyChatID == "") {
		errs = append(errs, errors.New("NOTIFY_BOT_TOKEN and NOTIFY_CHAT_ID must be set together"))
	}
	return errors.Join(errs...)
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) get(k, def string) string {
	if v, ok := p.lookup(k); ok && v != "" {
		return v
	}
	return def
}

func (p *parser) required(k string) string {
	v := p.get(k, "")
	if v == "" {
		p.errs = append(p.errs, fmt.Errorf("%s is required", k))
	}
	return v
}

func (p *parser) requiredInt(k string) int {
	return int(p.requiredInt64(k))
}

func (p *parser) requiredInt64(k string) int64 {
	v := p.required(k)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", k, v))
	}
	return n
}

func (p *parser) optionalInt(k string, def int) int {
	v := p.get(k, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", k, v))
		return def
	}
	return n
}
