package db

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// Client is the ledger store contract. GetOffense and GetLatestOffense return
// ErrNotFound (possibly wrapped) when the user has no matching row.
type Client interface {
	Close() error

	GetOffense(ctx context.Context, userID int64, date string) (*OffenseRecord, error)
	GetLatestOffense(ctx context.Context, userID int64) (*OffenseRecord, error)
	SumMonthOffenses(ctx context.Context, userID int64, yearMonth string) (int, error)
	UpsertOffense(ctx context.Context, record *OffenseRecord) error

	GetSettings(ctx context.Context, chatID int64) (*Settings, error)
	SetSettings(ctx context.Context, settings *Settings) error
}
