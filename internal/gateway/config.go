package gateway

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/fpt/polyglot/pkg/relay/dedup"
	"github.com/fpt/polyglot/pkg/relay/domain"
	"github.com/fpt/polyglot/pkg/relay/linktable"
	"github.com/fpt/polyglot/pkg/translate"
)

// Config is the top-level configuration for the relay.
type Config struct {
	LogLevel   string           `json:"log_level" yaml:"log_level" env:"POLYGLOT_LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	Discord    DiscordConfig    `json:"discord" yaml:"discord"`
	Channels   []ChannelConfig  `json:"channels" yaml:"channels" validate:"min=2,unique=Language,unique=ChannelID,dive"`
	Translator TranslatorConfig `json:"translator" yaml:"translator"`
	Relay      RelayConfig      `json:"relay" yaml:"relay"`
	Admin      AdminConfig      `json:"admin" yaml:"admin"`
	Stats      StatsConfig      `json:"stats" yaml:"stats"`

	// ChannelEnv carries CHANNEL_<LANG> overrides; applied onto Channels by Load.
	ChannelEnv ChannelEnv `json:"-" yaml:"-"`
}

// DiscordConfig holds Discord bot configuration.
type DiscordConfig struct {
	Token       string `json:"token" yaml:"token" env:"DISCORD_TOKEN" validate:"required"`
	WebhookName string `json:"webhook_name" yaml:"webhook_name" validate:"required,max=80"`
}

// ChannelConfig binds one language to one channel.
type ChannelConfig struct {
	Language  string `json:"language" yaml:"language" validate:"required,oneof=en es pt"`
	ChannelID string `json:"channel_id" yaml:"channel_id" validate:"required,numeric"`
}

// ChannelEnv mirrors the per-language channel variables.
type ChannelEnv struct {
	EN string `env:"CHANNEL_EN"`
	ES string `env:"CHANNEL_ES"`
	PT string `env:"CHANNEL_PT"`
}

// TranslatorConfig selects the translation backend.
type TranslatorConfig struct {
	Backend   string `json:"backend" yaml:"backend" env:"POLYGLOT_TRANSLATOR_BACKEND" validate:"oneof=anthropic openai gemini ollama"`
	Model     string `json:"model" yaml:"model" env:"POLYGLOT_TRANSLATOR_MODEL"`
	MaxTokens int    `json:"max_tokens" yaml:"max_tokens" validate:"gte=0"`
	BaseURL   string `json:"base_url" yaml:"base_url" validate:"omitempty,url"`
	Timeout   string `json:"timeout" yaml:"timeout" validate:"duration"` // Go duration, default "20s"
}

// RelayConfig tunes the relay core.
type RelayConfig struct {
	DedupTTL      string `json:"dedup_ttl" yaml:"dedup_ttl" validate:"duration"` // default "60s"
	MaxLinkGroups int    `json:"max_link_groups" yaml:"max_link_groups" validate:"gte=0"`
	QuoteMaxRunes int    `json:"quote_max_runes" yaml:"quote_max_runes" validate:"gte=0"`
}

// AdminConfig enables the admin RPC server when Addr is set.
type AdminConfig struct {
	Addr string `json:"addr" yaml:"addr" env:"POLYGLOT_ADMIN_ADDR" validate:"omitempty,hostname_port"`
}

// StatsConfig controls the periodic stats log line.
type StatsConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Interval string `json:"interval" yaml:"interval" validate:"duration"` // default "1h", minimum "1m"
}

// DefaultConfig returns sensible defaults. Channels and token must come from
// the file or the environment.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Discord:  DiscordConfig{WebhookName: "Polyglot"},
		Translator: TranslatorConfig{
			Backend: "anthropic",
			Timeout: translate.DefaultTimeout.String(),
		},
		Relay: RelayConfig{
			DedupTTL:      dedup.DefaultTTL.String(),
			MaxLinkGroups: linktable.DefaultMaxGroups,
			QuoteMaxRunes: 80,
		},
		Stats: StatsConfig{Enabled: true, Interval: "1h"},
	}
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".polyglot", "config.json")
}

// LoadConfig reads path (JSON, or YAML by extension), applies environment
// overrides and validates the result. A missing file is not an error: the
// relay can run from the environment alone.
func LoadConfig(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTranslatorConfig loads the same sources as LoadConfig but only checks
// the translator section, for commands that never connect to Discord.
func LoadTranslatorConfig(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(&cfg.Translator); err != nil {
		return nil, describeErrors(err)
	}
	return cfg, nil
}

func load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decodeConfig(path, data, cfg); err != nil {
				return nil, err
			}
		case os.IsNotExist(err):
		default:
			return nil, errors.Wrapf(err, "failed to read config %s", path)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}
	cfg.applyChannelEnv()
	return cfg, nil
}

func decodeConfig(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return errors.Wrapf(err, "failed to parse YAML config %s", path)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return errors.Wrapf(err, "failed to parse JSON config %s", path)
		}
	}
	return nil
}

// applyChannelEnv replaces or appends the channel of every language set in
// the environment. Appended channels keep catalog order.
func (c *Config) applyChannelEnv() {
	overrides := []struct {
		tag domain.Tag
		id  string
	}{
		{domain.TagEnglish, c.ChannelEnv.EN},
		{domain.TagSpanish, c.ChannelEnv.ES},
		{domain.TagPortuguese, c.ChannelEnv.PT},
	}
	for _, o := range overrides {
		id := strings.TrimSpace(o.id)
		if id == "" {
			continue
		}
		replaced := false
		for i := range c.Channels {
			if c.Channels[i].Language == string(o.tag) {
				c.Channels[i].ChannelID = id
				replaced = true
			}
		}
		if !replaced {
			c.Channels = append(c.Channels, ChannelConfig{Language: string(o.tag), ChannelID: id})
		}
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		d, err := time.ParseDuration(s)
		return err == nil && d >= 0
	})
	return v
}

// Validate checks the whole configuration and reports every violation.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return describeErrors(err)
	}
	return nil
}

func describeErrors(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describeFieldError(fe))
		}
		return errors.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	return errors.Wrap(err, "invalid config")
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " needs at least " + fe.Param() + " entries"
	case "unique":
		return field + " has a duplicate " + fe.Param()
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "numeric":
		return field + " must be a numeric channel id"
	case "duration":
		return field + " must be a Go duration such as 30s or 1h"
	default:
		return field + " failed " + fe.Tag()
	}
}

// Endpoints returns the channel endpoints in configuration order.
func (c *Config) Endpoints() []domain.ChannelEndpoint {
	out := make([]domain.ChannelEndpoint, 0, len(c.Channels))
	for _, ch := range c.Channels {
		out = append(out, domain.ChannelEndpoint{Tag: domain.Tag(ch.Language), ChannelID: ch.ChannelID})
	}
	return out
}

// TranslatorSettings converts the translator section for translate.New.
func (c *Config) TranslatorSettings() translate.Settings {
	return translate.Settings{
		Backend:   c.Translator.Backend,
		Model:     c.Translator.Model,
		MaxTokens: c.Translator.MaxTokens,
		BaseURL:   c.Translator.BaseURL,
		Timeout:   parseDuration(c.Translator.Timeout, translate.DefaultTimeout),
	}
}

// DedupTTL returns the configured dedup window.
func (c *Config) DedupTTL() time.Duration {
	return parseDuration(c.Relay.DedupTTL, dedup.DefaultTTL)
}

// StatsInterval returns the stats period, clamped to at least one minute.
func (c *Config) StatsInterval() time.Duration {
	d := parseDuration(c.Stats.Interval, time.Hour)
	if d < time.Minute {
		d = time.Minute
	}
	return d
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
