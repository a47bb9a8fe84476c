// Package syncx appends domain events to the durable event_log table so a
// later reporting or replication job can replay them.
package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const (
	EventQuizCreated    = "QuizCreated"
	EventQuizPublished  = "QuizPublished"
	EventResultRecorded = "ResultRecorded"
)

type Event struct {
	Offset    int64
	SiteID    string
	Type      string
	Key       string
	DataJSON  string
	CreatedAt int64
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// Record marshals payload and appends one event. Logging failures are left
// to the caller; recording is best effort on the request path.
func (r *EventRepo) Record(ctx context.Context, typ, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.Append(ctx, Event{SiteID: "local", Type: typ, Key: key, DataJSON: string(data)})
}
