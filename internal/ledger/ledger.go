package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/adabguard/adabguard/internal/db"
)

// Ledger keeps per-user offense accounting on top of the store. Every call to
// RecordOffense adds exactly one offense; the lifetime counter is carried
// forward from the user's most recent row, so gaps of quiet days never lose
// history. Lookup-then-upsert for one user is serialized with an in-process
// lock, the store itself does not provide that atomicity.
type Ledger struct {
	store db.Client

	mu        sync.Mutex
	userLocks map[int64]*sync.Mutex
}

type Stats struct {
	Daily    int
	Monthly  int
	Lifetime int
}

func New(store db.Client) *Ledger {
	return &Ledger{
		store:     store,
		userLocks: make(map[int64]*sync.Mutex),
	}
}

func (l *Ledger) RecordOffense(ctx context.Context, userID, chatID int64, username, firstName string, now time.Time) (int, error) {
	userLock := l.lockFor(userID)
	userLock.Lock()
	defer userLock.Unlock()

	today := db.Day(now)
	eventTime := now.UTC().Format(time.RFC3339Nano)

	record, err := l.store.GetOffense(ctx, userID, today)
	switch {
	case err == nil:
		record.DailyCount++
		record.TotalCount++
		record.ChatID = chatID
		record.UserName = username
		record.FirstName = firstName
		record.LastEventTime = eventTime
		if err := l.store.UpsertOffense(ctx, record); err != nil {
			return 0, errors.WithMessage(err, "cant persist offense")
		}
		l.getLogEntry().WithFields(log.Fields{
			"user_id": userID,
			"daily":   record.DailyCount,
			"total":   record.TotalCount,
		}).Info("updated offense record")
		return record.DailyCount, nil

	case errors.Is(err, db.ErrNotFound):
		priorLifetime := 0
		latest, err := l.store.GetLatestOffense(ctx, userID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return 0, errors.WithMessage(err, "cant look up latest offense")
		}
		if latest != nil {
			priorLifetime = latest.TotalCount
		}
		record = &db.OffenseRecord{
			UserID:        userID,
			ChatID:        chatID,
			UserName:      username,
			FirstName:     firstName,
			MessageDate:   today,
			LastEventTime: eventTime,
			DailyCount:    1,
			TotalCount:    priorLifetime + 1,
		}
		if err := l.store.UpsertOffense(ctx, record); err != nil {
			return 0, errors.WithMessage(err, "cant persist offense")
		}
		l.getLogEntry().WithFields(log.Fields{
			"user_id": userID,
			"daily":   1,
			"total":   record.TotalCount,
		}).Info("created offense record")
		return 1, nil

	default:
		return 0, errors.WithMessage(err, "cant look up offense")
	}
}

func (l *Ledger) Stats(ctx context.Context, userID int64, now time.Time) (Stats, error) {
	var stats Stats

	today, err := l.store.GetOffense(ctx, userID, db.Day(now))
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return Stats{}, errors.WithMessage(err, "cant get daily count")
	}
	if today != nil {
		stats.Daily = today.DailyCount
	}

	stats.Monthly, err = l.store.SumMonthOffenses(ctx, userID, db.Month(now))
	if err != nil {
		return Stats{}, errors.WithMessage(err, "cant sum monthly count")
	}

	latest, err := l.store.GetLatestOffense(ctx, userID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return Stats{}, errors.WithMessage(err, "cant get lifetime count")
	}
	if latest != nil {
		stats.Lifetime = latest.TotalCount
	}

	return stats, nil
}

func (l *Ledger) lockFor(userID int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	userLock, ok := l.userLocks[userID]
	if !ok {
		userLock = &sync.Mutex{}
		l.userLocks[userID] = userLock
	}
	return userLock
}

func (l *Ledger) getLogEntry() *log.Entry {
	return log.WithField("object", "Ledger")
}
