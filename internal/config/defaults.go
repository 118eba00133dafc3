package config

import (
	"time"

	"github.com/spf13/viper"
)

// Task names known to the scheduler.
const (
	TaskActivityRotation = "activity_rotation"
	TaskProactive        = "proactive_interaction"
	TaskMemoryFlush      = "memory_flush"
	TaskStoreMaintenance = "store_maintenance"
)

const (
	DefaultOpenAIBaseURL  = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DefaultModel          = "deepseek-v3"
	DefaultSearchEndpoint = "https://www.googleapis.com/customsearch/v1"
)

var defaults = map[string]any{
	"log.level": "info",
	"log.json":  false,

	"bot.platform":       "discord",
	"bot.command_prefix": "!",
	"bot.context_size":   5,
	"bot.typing_refresh": 8 * time.Second,

	"bot.messages.apology":          "抱歉，我刚走神了，能再说一遍吗？",
	"bot.messages.safe_default":     "嗯，有意思。你们继续，我先看看。",
	"bot.messages.unknown_command":  "抱歉，我不认识这个命令。输入 `!help` 查看可用命令。",
	"bot.messages.command_error":    "执行命令时出错，请稍后再试。",
	"bot.messages.startup_greeting": "大家好！我是新加入的虚拟群友，可以和我聊天，问我问题，或者用`!help`查看我的功能。期待和大家成为好朋友！😊",
	"bot.messages.startup_activity": "初次见面，请多指教！",
	"bot.messages.search_empty":     "抱歉，我搜索不到相关信息。你可以尝试换个关键词。",
	"bot.messages.provide_argument": "请在命令后面加上内容，例如 `!ask 今天天气怎么样`。",

	"discord.token":  "",
	"telegram.token": "",

	"llm.provider":             "openai",
	"llm.api_key":              "",
	"llm.base_url":             DefaultOpenAIBaseURL,
	"llm.model":                DefaultModel,
	"llm.temperature":          0.7,
	"llm.timeout":              30 * time.Second,
	"llm.max_attempts":         1,
	"llm.retry_delay":          time.Second,
	"llm.rate_per_minute":      0,
	"llm.breaker.max_failures": 5,
	"llm.breaker.open_timeout": time.Minute,

	"search.api_key":  "",
	"search.cx":       "",
	"search.endpoint": DefaultSearchEndpoint,
	"search.timeout":  10 * time.Second,
	"search.results":  5,

	"store.backend":            "json",
	"store.profile_path":       "memory.json",
	"store.history_path":       "conversation_history.json",
	"store.sqlite_path":        "groupmate.db",
	"store.flush_on_write":     true,
	"store.auto_save_interval": 5 * time.Second,
	"store.topic_cap":          20,
	"store.history_cap":        100,

	"scheduler.tasks." + TaskActivityRotation + ".enabled":      true,
	"scheduler.tasks." + TaskActivityRotation + ".interval":     30 * time.Minute,
	"scheduler.tasks." + TaskActivityRotation + ".run_on_start": true,
	"scheduler.tasks." + TaskProactive + ".enabled":             true,
	"scheduler.tasks." + TaskProactive + ".interval":            3 * time.Hour,
	"scheduler.tasks." + TaskMemoryFlush + ".enabled":           true,
	"scheduler.tasks." + TaskMemoryFlush + ".interval":          15 * time.Minute,
	"scheduler.tasks." + TaskStoreMaintenance + ".enabled":      true,
	"scheduler.tasks." + TaskStoreMaintenance + ".schedule":     "0 30 4 * * *",
}

// legacyEnv maps config keys to the unprefixed variables older deployments
// set. BOT_* names still take precedence.
var legacyEnv = map[string]string{
	"discord.token":  "DISCORD_TOKEN",
	"telegram.token": "TELEGRAM_TOKEN",
	"llm.api_key":    "OPENAI_API_KEY",
	"llm.base_url":   "OPENAI_BASE_URL",
	"llm.model":      "LLM_MODEL",
	"search.api_key": "GOOGLE_API_KEY",
	"search.cx":      "GOOGLE_CX",
}

func setDefaults(v *viper.Viper) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}
