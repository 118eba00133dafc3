package config_test

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edgard/groupmate/internal/config"
	"github.com/edgard/groupmate/internal/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_DISCORD_TOKEN", "token")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Bot.Platform != "discord" || cfg.Bot.CommandPrefix != "!" {
		t.Errorf("bot = %+v", cfg.Bot)
	}
	if cfg.LLM.Model != config.DefaultModel || cfg.LLM.BaseURL != config.DefaultOpenAIBaseURL {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.LLM.MaxAttempts != 1 {
		t.Errorf("max_attempts = %d, want 1", cfg.LLM.MaxAttempts)
	}
	if cfg.Store.ProfilePath != "memory.json" || cfg.Store.HistoryPath != "conversation_history.json" {
		t.Errorf("store paths = %q, %q", cfg.Store.ProfilePath, cfg.Store.HistoryPath)
	}
	if !cfg.Store.FlushOnWrite {
		t.Error("flush_on_write should default to true")
	}
	if cfg.Search.Enabled() {
		t.Error("search should be disabled without credentials")
	}

	wantTasks := map[string]time.Duration{
		config.TaskActivityRotation: 30 * time.Minute,
		config.TaskProactive:        3 * time.Hour,
		config.TaskMemoryFlush:      15 * time.Minute,
	}
	for name, interval := range wantTasks {
		task, ok := cfg.Scheduler.Tasks[name]
		if !ok {
			t.Errorf("task %s missing", name)
			continue
		}
		if !task.Enabled || task.Interval != interval {
			t.Errorf("task %s = %+v, want enabled every %v", name, task, interval)
		}
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := writeConfig(t, `
bot:
  platform: telegram
telegram:
  token: from-file
llm:
  model: qwen-max
  temperature: 0.2
store:
  backend: sqlite
scheduler:
  tasks:
    memory_flush:
      schedule: "0 */5 * * * *"
`)
	t.Setenv("BOT_LLM_TEMPERATURE", "1.2")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "from-file" {
		t.Errorf("telegram token = %q", cfg.Telegram.Token)
	}
	if cfg.LLM.Model != "qwen-max" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 1.2 {
		t.Errorf("temperature = %v, want env value 1.2", cfg.LLM.Temperature)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("backend = %q", cfg.Store.Backend)
	}
	flush := cfg.Scheduler.Tasks[config.TaskMemoryFlush]
	if flush.Schedule != "0 */5 * * * *" || !flush.Enabled {
		t.Errorf("memory_flush = %+v, want file schedule merged over defaults", flush)
	}
}

func TestLoadLegacyEnv(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "legacy-token")
	t.Setenv("OPENAI_API_KEY", "sk-legacy")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("GOOGLE_CX", "g-cx")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.Token != "legacy-token" || cfg.LLM.APIKey != "sk-legacy" {
		t.Errorf("legacy env not applied: discord=%q llm=%q", cfg.Discord.Token, cfg.LLM.APIKey)
	}
	if !cfg.Search.Enabled() {
		t.Error("search should be enabled from legacy env")
	}

	t.Setenv("BOT_DISCORD_TOKEN", "prefixed")
	cfg, err = config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.Token != "prefixed" {
		t.Errorf("discord token = %q, want BOT_ variable to win", cfg.Discord.Token)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing platform token", body: "bot:\n  platform: telegram\n"},
		{name: "unknown platform", body: "bot:\n  platform: irc\ndiscord:\n  token: x\n"},
		{name: "unknown backend", body: "discord:\n  token: x\nstore:\n  backend: redis\n"},
		{name: "bad temperature", body: "discord:\n  token: x\nllm:\n  temperature: 3\n"},
		{name: "task without timing", body: "discord:\n  token: x\nscheduler:\n  tasks:\n    memory_flush:\n      interval: 0s\n"},
		{name: "malformed yaml", body: "bot: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !stderrors.Is(err, errors.ErrConfig) {
				t.Errorf("error %v is not a config error", err)
			}
		})
	}
}
