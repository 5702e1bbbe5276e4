package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/wardenbot/warden/internal/bot"
	"github.com/wardenbot/warden/internal/config"
	"github.com/wardenbot/warden/internal/db"
	"github.com/wardenbot/warden/internal/db/sqlite"
	"github.com/wardenbot/warden/internal/handlers"
	"github.com/wardenbot/warden/internal/infra"
	"github.com/wardenbot/warden/internal/lifecycle"
	"github.com/wardenbot/warden/internal/moderation"
	"github.com/wardenbot/warden/internal/observability"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		DisableColors:    true,
		FullTimestamp:    true,
		TimestampFormat:  "2006-01-02 15:04:05",
		QuoteEmptyFields: true,
	})
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := observability.Init(ctx, cfg.MetricsAddr); err != nil {
		log.WithError(err).Fatalln("cant init observability")
	}

	store, err := sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(), cfg.DBPath, db.PolicyFromFlood(cfg.Flood))
	if err != nil {
		log.WithError(err).Fatalln("cant open db")
	}
	defer store.Close()

	engine := moderation.NewEngine(store, moderation.EscalationFromFlood(cfg.Flood))
	pruner := moderation.NewPruner(store, cfg.Flood.PruneInterval, cfg.Flood.Retention)

	runtime := lifecycle.NewRuntime(pruner)
	if err := runtime.Start(ctx); err != nil {
		log.WithError(err).Fatalln("cant start runtime")
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := runtime.Stop(stopCtx); err != nil {
			log.WithError(err).Error("cant stop runtime cleanly")
		}
	}()

	infra.GoRecoverable(-1, "process_updates", func() {
		defer cancel()

		tgbot, err := api.NewBotAPI(cfg.TelegramAPIToken)
		if err != nil {
			log.WithError(err).Errorln("cant initialize bot api")
			time.Sleep(1 * time.Second)
			log.Fatalln("exiting")
		}
		tgbot.Debug = false

		service := bot.NewService(tgbot, store, engine, cfg)

		bot.RegisterUpdateHandler("admin", handlers.NewAdmin(service))
		bot.RegisterUpdateHandler("flood", handlers.NewFlood(service))

		updateConfig := api.NewUpdate(0)
		updateConfig.Timeout = 60
		updateHandler := bot.NewUpdateProcessor(service)

		for update := range tgbot.GetUpdatesChan(updateConfig) {
			if err := updateHandler.Process(ctx, &update); err != nil {
				log.WithError(err).Errorln("cant process update")
			}
		}
	})

	<-ctx.Done()
	log.Infoln("shutting down")
}
