// Package config provides configuration loading and validation for
// groupmate. Values come from defaults, an optional YAML file, a .env file
// and BOT_* environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/edgard/groupmate/internal/errors"
)

// Config is the full application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Bot       BotConfig       `mapstructure:"bot"`
	Discord   DiscordConfig   `mapstructure:"discord"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Search    SearchConfig    `mapstructure:"search"`
	Store     StoreConfig     `mapstructure:"store"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// BotConfig holds platform selection and user-facing behaviour.
type BotConfig struct {
	Platform      string         `mapstructure:"platform"       validate:"oneof=discord telegram"`
	CommandPrefix string         `mapstructure:"command_prefix" validate:"required"`
	ContextSize   int            `mapstructure:"context_size"   validate:"min=1,max=100"`
	TypingRefresh time.Duration  `mapstructure:"typing_refresh" validate:"min=1s,max=1m"`
	Messages      MessagesConfig `mapstructure:"messages"`
}

// MessagesConfig holds the fixed strings the bot sends.
type MessagesConfig struct {
	Apology         string `mapstructure:"apology"          validate:"required"`
	SafeDefault     string `mapstructure:"safe_default"     validate:"required"`
	UnknownCommand  string `mapstructure:"unknown_command"  validate:"required"`
	CommandError    string `mapstructure:"command_error"    validate:"required"`
	StartupGreeting string `mapstructure:"startup_greeting" validate:"required"`
	StartupActivity string `mapstructure:"startup_activity" validate:"required"`
	SearchEmpty     string `mapstructure:"search_empty"     validate:"required"`
	ProvideArgument string `mapstructure:"provide_argument" validate:"required"`
}

// DiscordConfig holds Discord credentials.
type DiscordConfig struct {
	Token string `mapstructure:"token"`
}

// TelegramConfig holds Telegram credentials.
type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

// LLMConfig selects and tunes the language model backend.
type LLMConfig struct {
	Provider      string        `mapstructure:"provider"        validate:"oneof=openai gemini"`
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"        validate:"omitempty,url"`
	Model         string        `mapstructure:"model"           validate:"required"`
	Temperature   float32       `mapstructure:"temperature"     validate:"min=0,max=2"`
	Timeout       time.Duration `mapstructure:"timeout"         validate:"min=1s,max=10m"`
	MaxAttempts   uint          `mapstructure:"max_attempts"    validate:"min=1,max=10"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"     validate:"min=0,max=1m"`
	RatePerMinute int           `mapstructure:"rate_per_minute" validate:"min=0"`
	Breaker       BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig tunes the circuit breaker in front of the LLM. A zero
// MaxFailures disables tripping.
type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout" validate:"min=0"`
}

// SearchConfig configures the Google Custom Search client. Search is
// disabled when either credential is empty.
type SearchConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	CX       string        `mapstructure:"cx"`
	Endpoint string        `mapstructure:"endpoint" validate:"required,url"`
	Timeout  time.Duration `mapstructure:"timeout"  validate:"min=1s,max=1m"`
	Results  int           `mapstructure:"results"  validate:"min=1,max=10"`
}

// Enabled reports whether both search credentials are present.
func (c SearchConfig) Enabled() bool { return c.APIKey != "" && c.CX != "" }

// StoreConfig selects where memory is persisted.
type StoreConfig struct {
	Backend          string        `mapstructure:"backend"            validate:"oneof=json sqlite"`
	ProfilePath      string        `mapstructure:"profile_path"       validate:"required"`
	HistoryPath      string        `mapstructure:"history_path"       validate:"required"`
	SQLitePath       string        `mapstructure:"sqlite_path"        validate:"required"`
	FlushOnWrite     bool          `mapstructure:"flush_on_write"`
	AutoSaveInterval time.Duration `mapstructure:"auto_save_interval" validate:"min=1s"`
	TopicCap         int           `mapstructure:"topic_cap"          validate:"min=1"`
	HistoryCap       int           `mapstructure:"history_cap"        validate:"min=1"`
}

// SchedulerConfig lists the periodic tasks by name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig schedules one task either by cron expression or by fixed
// interval. Schedule wins when both are set.
type TaskConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Schedule string        `mapstructure:"schedule"`
	Interval time.Duration `mapstructure:"interval" validate:"min=0"`
	// RunOnStart runs the task once as soon as the scheduler starts.
	RunOnStart bool `mapstructure:"run_on_start"`
}

// Validate checks field constraints and the rules that span sections.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.NewConfigError("invalid configuration", err)
	}

	switch c.Bot.Platform {
	case "discord":
		if c.Discord.Token == "" {
			return errors.NewConfigError("discord.token is required when bot.platform is discord", nil)
		}
	case "telegram":
		if c.Telegram.Token == "" {
			return errors.NewConfigError("telegram.token is required when bot.platform is telegram", nil)
		}
	}

	for name, task := range c.Scheduler.Tasks {
		if task.Enabled && task.Schedule == "" && task.Interval <= 0 {
			return errors.NewConfigError(fmt.Sprintf("scheduler task %q needs a schedule or an interval", name), nil)
		}
	}
	return nil
}
