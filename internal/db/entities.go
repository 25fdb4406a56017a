package db

import "time"

type (
	// OffenseRecord is one ledger row per (user, calendar day). The display
	// fields hold whatever the user looked like on their latest offense that
	// day, they are not historized.
	OffenseRecord struct {
		UserID        int64  `db:"user_id"`
		ChatID        int64  `db:"chat_id"`
		UserName      string `db:"username"`
		FirstName     string `db:"first_name"`
		MessageDate   string `db:"message_date"`
		LastEventTime string `db:"last_event_time"`
		DailyCount    int    `db:"daily_count"`
		TotalCount    int    `db:"total_count"`
	}

	Settings struct {
		ID       int64  `db:"id"`
		Enabled  bool   `db:"enabled"`
		Language string `db:"language"`
	}
)

const (
	// Ledger dates are pinned to UTC, local process time is never used.
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

func DefaultSettings(chatID int64, language string) *Settings {
	return &Settings{
		ID:       chatID,
		Enabled:  true,
		Language: language,
	}
}

// Day returns the UTC ledger date for a point in time.
func Day(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Month returns the UTC ledger month prefix for a point in time.
func Month(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}
