package config

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		TelegramAPIToken string   `env:"TOKEN,required"`
		DefaultLanguage  string   `env:"LANG,default=ar"`
		EnabledHandlers  []string `env:"HANDLERS,default=moderation,commands"`
		LogLevel         int      `env:"LOG_LEVEL,default=4"`
		DotPath          string   `env:"DOT_PATH,default=~/.adabguard"`
		DBName           string   `env:"DB_NAME,default=offense_log.db"`
		ListenAddr       string   `env:"LISTEN_ADDR,default=:8080"`
		WebhookURL       string   `env:"WEBHOOK_URL"`
		AdminChatID      int64    `env:"ADMIN_CHAT_ID"`
		SwearWordsFile   string   `env:"SWEAR_WORDS_FILE"`
		LLM              LLM
		Moderation       Moderation
	}

	LLM struct {
		APIKey  string        `env:"LLM_API_KEY,required"`
		Model   string        `env:"LLM_API_MODEL,default=gemini-1.5-flash"`
		BaseURL string        `env:"LLM_API_URL,default=https://api.openai.com/v1"`
		Type    string        `env:"LLM_API_TYPE,default=gemini"`
		Timeout time.Duration `env:"LLM_TIMEOUT,default=30s"`
	}

	Moderation struct {
		DailyOffenseLimit   int           `env:"DAILY_OFFENSE_LIMIT,default=2"`
		RestrictionDuration time.Duration `env:"RESTRICTION_DURATION,default=300s"`

		// Kept for compatibility with existing deployments, no behavior is
		// attached to these two yet.
		MonthlyEncouragementThreshold int `env:"MONTHLY_ENCOURAGEMENT_THRESHOLD,default=10"`
		MaxPrivateMessagesPerRun      int `env:"MAX_PRIVATE_MESSAGES_PER_RUN,default=5"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("AG_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		home, err := homedir.Dir()
		if err != nil {
			globalErr = fmt.Errorf("get user home directory: %w", err)
			return
		}
		cfg.DotPath = strings.Replace(cfg.DotPath, "~", home, 1)
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
