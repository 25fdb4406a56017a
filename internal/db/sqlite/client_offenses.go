package sqlite

import (
	"context"
	"database/sql"

	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"

	"github.com/adabguard/adabguard/internal/db"
)

func (c *sqliteClient) GetOffense(ctx context.Context, userID int64, date string) (*db.OffenseRecord, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	res := &db.OffenseRecord{}
	err := c.db.GetContext(ctx, res, `
		SELECT user_id, chat_id, username, first_name, message_date, last_event_time, daily_count, total_count
		FROM offenses
		WHERE user_id = ? AND message_date = ?`, userID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, errors.WithMessage(err, "cant get offense")
	}
	return res, nil
}

func (c *sqliteClient) GetLatestOffense(ctx context.Context, userID int64) (*db.OffenseRecord, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	res := &db.OffenseRecord{}
	err := c.db.GetContext(ctx, res, `
		SELECT user_id, chat_id, username, first_name, message_date, last_event_time, daily_count, total_count
		FROM offenses
		WHERE user_id = ?
		ORDER BY last_event_time DESC
		LIMIT 1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, errors.WithMessage(err, "cant get latest offense")
	}
	return res, nil
}

func (c *sqliteClient) SumMonthOffenses(ctx context.Context, userID int64, yearMonth string) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var sum int
	err := c.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(daily_count), 0)
		FROM offenses
		WHERE user_id = ? AND message_date LIKE ?`, userID, yearMonth+"-%")
	if err != nil {
		return 0, errors.WithMessage(err, "cant sum month offenses")
	}
	return sum, nil
}

func (c *sqliteClient) UpsertOffense(ctx context.Context, record *db.OffenseRecord) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO offenses (user_id, chat_id, username, first_name, message_date, last_event_time, daily_count, total_count)
		VALUES (:user_id, :chat_id, :username, :first_name, :message_date, :last_event_time, :daily_count, :total_count)
		ON CONFLICT(user_id, message_date) DO UPDATE SET
		chat_id=excluded.chat_id,
		username=excluded.username,
		first_name=excluded.first_name,
		last_event_time=excluded.last_event_time,
		daily_count=excluded.daily_count,
		total_count=excluded.total_count;
	`
	return tool.Err(c.db.NamedExecContext(ctx, query, record))
}
