package handlers

import (
	"context"
	"fmt"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/adabguard/adabguard/internal/db"
	"github.com/adabguard/adabguard/internal/i18n"
	"github.com/adabguard/adabguard/internal/ledger"
)

func commandUpdate(command string) *api.Update {
	text := "/" + command
	return &api.Update{
		Message: &api.Message{
			MessageID: 9,
			Text:      text,
			Entities:  []api.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
			Chat:      api.Chat{ID: -100, Type: "supergroup"},
			From:      &api.User{ID: 42, UserName: "offender", FirstName: "Some"},
		},
	}
}

func TestCommandsStartGreets(t *testing.T) {
	t.Parallel()

	platform := &testPlatform{}
	c := NewCommands(&moderationTestService{}, platform, ledger.New(newHandlersTestStore()))

	u := commandUpdate("start")
	proceed, err := c.Handle(context.Background(), u, u.FromChat(), u.SentFrom())
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if proceed {
		t.Fatal("a handled command must stop the handler chain")
	}
	want := i18n.Get(greetingMessage, "ar")
	if texts := platform.sentTexts(); len(texts) != 1 || texts[0] != want {
		t.Fatalf("unexpected greeting: %v", texts)
	}
}

func TestCommandsStatRepliesWithTotals(t *testing.T) {
	t.Parallel()

	platform := &testPlatform{}
	store := newHandlersTestStore()
	now := time.Now().UTC()
	store.rows["42/"+db.Day(now)] = db.OffenseRecord{
		UserID:        42,
		ChatID:        -100,
		MessageDate:   db.Day(now),
		LastEventTime: now.Format(time.RFC3339Nano),
		DailyCount:    2,
		TotalCount:    5,
	}
	c := NewCommands(&moderationTestService{}, platform, ledger.New(store))

	u := commandUpdate("stat")
	if _, err := c.Handle(context.Background(), u, u.FromChat(), u.SentFrom()); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	want := fmt.Sprintf(i18n.Get(statsMessage, "ar"), "Some", 2, 2, 5)
	if texts := platform.sentTexts(); len(texts) != 1 || texts[0] != want {
		t.Fatalf("unexpected stats reply: %v", texts)
	}
}

func TestCommandsIgnoresUnknownAndPlainMessages(t *testing.T) {
	t.Parallel()

	platform := &testPlatform{}
	c := NewCommands(&moderationTestService{}, platform, ledger.New(newHandlersTestStore()))

	plain := groupMessageUpdate("no command here", false)
	proceed, err := c.Handle(context.Background(), plain, plain.FromChat(), plain.SentFrom())
	if err != nil || !proceed {
		t.Fatalf("plain message: proceed=%v err=%v", proceed, err)
	}

	unknown := commandUpdate("frobnicate")
	proceed, err = c.Handle(context.Background(), unknown, unknown.FromChat(), unknown.SentFrom())
	if err != nil || !proceed {
		t.Fatalf("unknown command: proceed=%v err=%v", proceed, err)
	}
	if len(platform.sent) != 0 {
		t.Fatalf("no replies expected, got %d", len(platform.sent))
	}
}
