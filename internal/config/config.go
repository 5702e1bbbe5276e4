package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		TelegramAPIToken string   `env:"TOKEN,required"`
		DefaultLanguage  string   `env:"LANG,default=en"`
		EnabledHandlers  []string `env:"HANDLERS,default=admin,flood"`
		LogLevel         int      `env:"LOG_LEVEL,default=2"`
		DotPath          string   `env:"DOT_PATH,default=~/.warden"`
		DBPath           string   `env:"DB_PATH,default=warden.db"`
		MetricsAddr      string   `env:"METRICS_ADDR,default=:2112"`
		Flood            Flood
	}

	// Flood holds the process-wide defaults for the repetition detector.
	// Per-chat overrides live in the policy store.
	Flood struct {
		StickerThreshold int           `env:"FLOOD_STICKER_THRESHOLD,default=3"`
		StickerWindow    time.Duration `env:"FLOOD_STICKER_WINDOW,default=30s"`
		TextThreshold    int           `env:"FLOOD_TEXT_THRESHOLD,default=3"`
		TextWindow       time.Duration `env:"FLOOD_TEXT_WINDOW,default=20s"`
		PhotoThreshold   int           `env:"FLOOD_PHOTO_THRESHOLD,default=3"`
		PhotoWindow      time.Duration `env:"FLOOD_PHOTO_WINDOW,default=30s"`
		VideoThreshold   int           `env:"FLOOD_VIDEO_THRESHOLD,default=3"`
		VideoWindow      time.Duration `env:"FLOOD_VIDEO_WINDOW,default=30s"`
		WarnEnabled      bool          `env:"FLOOD_WARN_ENABLED,default=true"`

		// Restriction ladder in minutes, one entry per violation ordinal.
		// Repeat offenses past the table get EscalationFallback.
		EscalationSteps    []int `env:"ESCALATION_STEPS,default=10,60,300,1440"`
		EscalationFallback int   `env:"ESCALATION_FALLBACK,default=2880"`

		Retention     time.Duration `env:"FLOOD_RETENTION,default=24h"`
		PruneInterval time.Duration `env:"FLOOD_PRUNE_INTERVAL,default=1h"`
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
			Lookuper: envconfig.PrefixLookuper("WARDEN_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		home, err := os.UserHomeDir()
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
