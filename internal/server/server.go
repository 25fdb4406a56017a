package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/gin-gonic/gin"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/adabguard/adabguard/internal/config"
	"github.com/adabguard/adabguard/internal/observability"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// updateSink consumes decoded bot updates.
type updateSink interface {
	Process(ctx context.Context, u *api.Update) error
}

// Server receives Telegram webhook calls and hands the updates to the
// processing chain. It also exposes health and metrics endpoints.
type Server struct {
	cfg       *config.Config
	bot       *api.BotAPI
	processor updateSink
	router    *gin.Engine
	srv       *http.Server
	secret    string
	group     *errgroup.Group
}

func New(cfg *config.Config, bot *api.BotAPI, processor updateSink) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		cfg:       cfg,
		bot:       bot,
		processor: processor,
		router:    router,
		secret:    webhookSecret(cfg),
	}
	s.setupRoutes()
	return s
}

// webhookSecret is stable for a given deployment, so a webhook registered
// before a restart keeps validating without another set_webhook call.
func webhookSecret(cfg *config.Config) string {
	return uuid.NewSHA1(uuid.NameSpace_URL, []byte(cfg.TelegramAPIToken+"|"+cfg.WebhookURL)).String()
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleStatus)
	s.router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	s.router.GET("/metrics", gin.WrapH(observability.MetricsHandler()))
	s.router.POST("/webhook", s.handleWebhook)
	s.router.POST("/set_webhook", s.handleSetWebhook)
}

func (s *Server) handleStatus(c *gin.Context) {
	username := ""
	if s.bot != nil {
		username = s.bot.Self.UserName
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "operational",
		"bot":    username,
	})
}

func (s *Server) handleWebhook(c *gin.Context) {
	if c.GetHeader(secretTokenHeader) != s.secret {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid secret token"})
		return
	}

	var update api.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		log.WithField("error", err.Error()).Warn("cant decode webhook update")
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed update"})
		return
	}

	// Telegram retries undelivered webhooks, so acknowledge first and
	// process out of band.
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("panic while processing update %d: %v", update.UpdateID, r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.processor.Process(ctx, &update); err != nil {
			log.WithField("error", err.Error()).Error("cant process update")
		}
	}()

	c.Status(http.StatusOK)
}

func (s *Server) handleSetWebhook(c *gin.Context) {
	if s.cfg.WebhookURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "webhook url is not configured"})
		return
	}

	wh, err := api.NewWebhook(strings.TrimSuffix(s.cfg.WebhookURL, "/") + "/webhook")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	wh.SecretToken = s.secret
	if _, err := s.bot.Request(wh); err != nil {
		log.WithField("error", err.Error()).Error("cant register webhook")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	log.WithField("url", s.cfg.WebhookURL).Info("webhook registered")
	c.JSON(http.StatusOK, gin.H{"status": "webhook set"})
}

// SecretToken returns the per-process webhook secret, tests use it.
func (s *Server) SecretToken() string {
	return s.secret
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(_ context.Context) error {
	s.srv = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.group = &errgroup.Group{}
	s.group.Go(func() error {
		log.WithField("addr", s.cfg.ListenAddr).Info("webhook server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.WithMessage(err, "webhook server failed")
		}
		return nil
	})
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return errors.WithMessage(err, "cant shutdown webhook server")
	}
	return s.group.Wait()
}
