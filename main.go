package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/adabguard/adabguard/internal/adapters"
	"github.com/adabguard/adabguard/internal/adapters/llm/gemini"
	"github.com/adabguard/adabguard/internal/adapters/llm/openai"
	"github.com/adabguard/adabguard/internal/bot"
	"github.com/adabguard/adabguard/internal/config"
	"github.com/adabguard/adabguard/internal/db/sqlite"
	"github.com/adabguard/adabguard/internal/handlers"
	"github.com/adabguard/adabguard/internal/infra"
	"github.com/adabguard/adabguard/internal/ledger"
	"github.com/adabguard/adabguard/internal/lifecycle"
	"github.com/adabguard/adabguard/internal/observability"
	"github.com/adabguard/adabguard/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetFormatter(&config.AgFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	if err := observability.Init(); err != nil {
		log.WithError(err).Fatalln("cant initialize observability")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		log.WithError(err).Errorln("cant initialize bot api")
		time.Sleep(1 * time.Second)
		log.Fatalln("exiting")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}
	defer botAPI.StopReceivingUpdates()
	log.WithField("bot", botAPI.Self.UserName).Info("authorized")

	store, err := sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(cfg.DotPath), cfg.DBName)
	if err != nil {
		log.WithError(err).Fatalln("cant initialize storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Errorln("cant close storage")
		}
	}()

	led := ledger.New(store)

	var llmAPI adapters.LLM
	switch cfg.LLM.Type {
	case "openai":
		llmAPI = openai.NewOpenAI(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL, log.WithField("context", "openai"))
	default:
		llmAPI = gemini.NewGemini(cfg.LLM.APIKey, cfg.LLM.Model, log.WithField("context", "gemini"))
	}
	classifier := handlers.NewProfanityDetector(
		llmAPI,
		handlers.LoadReferenceWords(cfg.SwearWordsFile),
		cfg.LLM.Timeout,
		log.WithField("context", "detector"),
	)

	service := bot.NewService(botAPI, store, cfg)
	platform := bot.NewPlatform(botAPI)
	bot.RegisterUpdateHandler("moderation", handlers.NewModeration(service, platform, led, classifier, &cfg))
	bot.RegisterUpdateHandler("commands", handlers.NewCommands(service, platform, led))
	processor := bot.NewUpdateProcessor(service)

	if cfg.WebhookURL != "" {
		runWebhook(ctx, &cfg, botAPI, processor)
		return
	}
	runPolling(ctx, botAPI, processor)
}

func runWebhook(ctx context.Context, cfg *config.Config, botAPI *api.BotAPI, processor *bot.UpdateProcessor) {
	runtime := lifecycle.NewRuntime()
	runtime.Register("webhook server", server.New(cfg, botAPI, processor))
	if err := runtime.Start(ctx); err != nil {
		log.WithError(err).Fatalln("cant start webhook server")
	}

	select {
	case <-ctx.Done():
		log.Infoln("shutting down")
	case <-infra.MonitorExecutable(ctx):
		log.Errorln("executable file was modified")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := runtime.Stop(shutdownCtx); err != nil {
		log.WithError(err).Errorln("unclean shutdown")
	}
}

func runPolling(ctx context.Context, botAPI *api.BotAPI, processor *bot.UpdateProcessor) {
	updateConfig := api.NewUpdate(0)
	updateConfig.Timeout = 60

	updateChan, errorChan := bot.GetUpdatesChans(ctx, botAPI, updateConfig)
	monitor := infra.MonitorExecutable(ctx)

	for {
		select {
		case err := <-errorChan:
			if errors.Is(err, context.Canceled) {
				return
			}
			log.WithError(err).Fatalln("bot api get updates error")
		case update := <-updateChan:
			if err := processor.Process(ctx, &update); err != nil {
				log.WithError(err).Errorln("cant process update")
			}
		case <-monitor:
			log.Errorln("executable file was modified")
			return
		case <-ctx.Done():
			log.WithError(ctx.Err()).Errorln("no more updates")
			return
		}
	}
}
