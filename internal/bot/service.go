package bot

import (
	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/wardenbot/warden/internal/config"
	"github.com/wardenbot/warden/internal/db"
	"github.com/wardenbot/warden/internal/moderation"
)

type service struct {
	bot    *api.BotAPI
	db     db.Client
	engine *moderation.Engine
	cfg    config.Config
}

func NewService(bot *api.BotAPI, dbClient db.Client, engine *moderation.Engine, cfg config.Config) Service {
	return &service{
		bot:    bot,
		db:     dbClient,
		engine: engine,
		cfg:    cfg,
	}
}

func (s *service) GetBot() *api.BotAPI {
	return s.bot
}

func (s *service) GetDB() db.Client {
	return s.db
}

func (s *service) GetEngine() *moderation.Engine {
	return s.engine
}

func (s *service) GetLanguage() string {
	return s.cfg.DefaultLanguage
}
