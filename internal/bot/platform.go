package bot

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
)

// Platform is the narrow set of chat actions handlers perform, kept small so
// the moderation pipeline can be exercised against a fake.
type Platform interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	RestrictUser(ctx context.Context, userID, chatID int64, duration time.Duration) error
	Send(c api.Chattable) error
}

type telegramPlatform struct {
	bot *api.BotAPI
}

func NewPlatform(bot *api.BotAPI) Platform {
	return &telegramPlatform{bot: bot}
}

func (p *telegramPlatform) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return DeleteChatMessage(ctx, p.bot, chatID, messageID)
}

func (p *telegramPlatform) RestrictUser(ctx context.Context, userID, chatID int64, duration time.Duration) error {
	return RestrictChatting(ctx, p.bot, userID, chatID, duration)
}

func (p *telegramPlatform) Send(c api.Chattable) error {
	_, err := p.bot.Send(c)
	return err
}
