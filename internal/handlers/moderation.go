package handlers

import (
	"context"
	"fmt"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/adabguard/adabguard/internal/adapters"
	"github.com/adabguard/adabguard/internal/bot"
	"github.com/adabguard/adabguard/internal/config"
	"github.com/adabguard/adabguard/internal/i18n"
	"github.com/adabguard/adabguard/internal/ledger"
	"github.com/adabguard/adabguard/internal/observability"
)

const (
	warnMessage           = "%s, your message was deleted for containing inappropriate language. This is offense #%d today. Repeated offenses lead to a temporary restriction."
	restrictedMessage     = "%s, your account has been temporarily restricted for %d minutes due to repeated inappropriate content."
	restrictFailedMessage = "Failed to restrict user %s. Offense #%d today has been recorded anyway. Please escalate to the administrators."
)

// Moderation deletes profane group messages, records the offense and
// escalates repeat offenders to a temporary restriction.
type Moderation struct {
	s          bot.Service
	platform   bot.Platform
	ledger     *ledger.Ledger
	classifier adapters.Classifier
	cfg        *config.Config
}

func NewModeration(s bot.Service, platform bot.Platform, led *ledger.Ledger, classifier adapters.Classifier, cfg *config.Config) *Moderation {
	return &Moderation{
		s:          s,
		platform:   platform,
		ledger:     led,
		classifier: classifier,
		cfg:        cfg,
	}
}

func (m *Moderation) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	if u.Message == nil || chat == nil || user == nil {
		return true, nil
	}
	msg := u.Message
	if user.IsBot || msg.IsCommand() || chat.IsPrivate() {
		return true, nil
	}
	content := bot.ExtractContentFromMessage(msg)
	if content == "" {
		return true, nil
	}

	entry := log.WithFields(log.Fields{
		"context": "moderation",
		"chat":    chat.ID,
		"user":    bot.GetUN(user),
	})

	verdict, err := m.classifier.Classify(ctx, content)
	if err != nil {
		// Fail open: an unavailable classifier must never punish users.
		entry.WithField("error", err.Error()).Warn("classifier unavailable, message kept")
		observability.RecordClassification("error")
		return true, nil
	}
	if !verdict {
		observability.RecordClassification("keep")
		return true, nil
	}
	observability.RecordClassification("delete")

	observability.Audit().Warn("offensive message deleted",
		zap.Int64("chat_id", chat.ID),
		zap.Int64("user_id", user.ID),
		zap.String("username", bot.GetUN(user)),
		zap.Int("message_id", msg.MessageID),
	)

	if err := m.platform.DeleteMessage(ctx, chat.ID, msg.MessageID); err != nil {
		entry.WithField("error", err.Error()).Error("cant delete message")
	}

	daily, err := m.ledger.RecordOffense(ctx, user.ID, chat.ID, user.UserName, user.FirstName, time.Now())
	if err != nil {
		entry.WithField("error", err.Error()).Error("cant record offense")
		m.notifyAdmin(fmt.Sprintf("cant record offense for %s (%d) in chat %d: %v", bot.GetUN(user), user.ID, chat.ID, err))
		return false, nil
	}

	m.escalate(ctx, chat, user, daily)
	return false, nil
}

func (m *Moderation) escalate(ctx context.Context, chat *api.Chat, user *api.User, daily int) {
	entry := log.WithFields(log.Fields{
		"context": "moderation",
		"chat":    chat.ID,
		"user":    bot.GetUN(user),
		"daily":   daily,
	})
	lang := m.s.GetLanguage(ctx, chat.ID)
	mention := bot.GetMention(user)

	var text string
	switch ledger.Decide(daily, m.cfg.Moderation.DailyOffenseLimit) {
	case ledger.ActionRestrict:
		observability.RecordOffenseAction("restrict")
		duration := m.cfg.Moderation.RestrictionDuration
		if err := m.platform.RestrictUser(ctx, user.ID, chat.ID, duration); err != nil {
			entry.WithField("error", err.Error()).Error("cant restrict user")
			text = fmt.Sprintf(i18n.Get(restrictFailedMessage, lang), mention, daily)
		} else {
			entry.Info("user restricted")
			text = fmt.Sprintf(i18n.Get(restrictedMessage, lang), mention, int(duration.Minutes()))
		}
	default:
		observability.RecordOffenseAction("warn")
		text = fmt.Sprintf(i18n.Get(warnMessage, lang), mention, daily)
	}

	m.announce(chat.ID, text)
}

func (m *Moderation) announce(chatID int64, text string) {
	msg := api.NewMessage(chatID, text)
	msg.ParseMode = api.ModeHTML
	if err := m.platform.Send(msg); err != nil {
		log.WithField("error", err.Error()).Error("cant send moderation notice")
	}
}

func (m *Moderation) notifyAdmin(text string) {
	if m.cfg.AdminChatID == 0 {
		return
	}
	if err := m.platform.Send(api.NewMessage(m.cfg.AdminChatID, text)); err != nil {
		log.WithField("error", err.Error()).Error("cant notify admin chat")
	}
}
