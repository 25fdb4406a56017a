package handlers

import (
	"context"
	"fmt"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/adabguard/adabguard/internal/bot"
	"github.com/adabguard/adabguard/internal/i18n"
	"github.com/adabguard/adabguard/internal/ledger"
)

const (
	greetingMessage = "Hello! I am a profanity filter bot. I watch messages, delete inappropriate content and record offenses based on strict AI analysis. The second offense in one day leads to a temporary restriction."
	statsMessage    = "📊 <b>Your personal statistics, %s:</b>\nToday: %d offenses\nThis month: %d offenses\nAll time: %d offenses\n\nRemember, the goal is to keep the discussion positive! 😊"
	statsFailed     = "Sorry, something went wrong while fetching your statistics."
)

// Commands answers the bot commands, currently /start and /stat.
type Commands struct {
	s        bot.Service
	platform bot.Platform
	ledger   *ledger.Ledger
}

func NewCommands(s bot.Service, platform bot.Platform, led *ledger.Ledger) *Commands {
	return &Commands{
		s:        s,
		platform: platform,
		ledger:   led,
	}
}

func (c *Commands) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if u.Message == nil || chat == nil || user == nil {
		return true, nil
	}
	msg := u.Message
	if !msg.IsCommand() {
		return true, nil
	}

	lang := c.s.GetLanguage(ctx, chat.ID)

	switch msg.Command() {
	case "start":
		c.reply(chat.ID, i18n.Get(greetingMessage, lang))
	case "stat", "stats":
		stats, err := c.ledger.Stats(ctx, user.ID, time.Now())
		if err != nil {
			log.WithFields(log.Fields{
				"context": "commands",
				"user":    bot.GetUN(user),
				"error":   err.Error(),
			}).Error("cant fetch stats")
			c.reply(chat.ID, i18n.Get(statsFailed, lang))
			break
		}
		name := user.FirstName
		if name == "" {
			name = bot.GetUN(user)
		}
		c.reply(chat.ID, fmt.Sprintf(i18n.Get(statsMessage, lang), name, stats.Daily, stats.Monthly, stats.Lifetime))
	default:
		return true, nil
	}

	return false, nil
}

func (c *Commands) reply(chatID int64, text string) {
	msg := api.NewMessage(chatID, text)
	msg.ParseMode = api.ModeHTML
	if err := c.platform.Send(msg); err != nil {
		log.WithField("error", err.Error()).Error("cant send reply")
	}
}
