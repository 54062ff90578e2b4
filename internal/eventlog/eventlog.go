// Package eventlog keeps an append-only audit trail of the events that
// matter after the fact: submitted attempts and settled payments.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const (
	TypeAttemptSubmitted = "AttemptSubmitted"
	TypePaymentSettled   = "PaymentSettled"
)

type Event struct {
	Offset    int64
	Type      string
	Key       string // natural key: result ID / payment order ID
	DataJSON  string
	CreatedAt int64
}

// Appender is the write-side view consumed by the coordinator and the
// payment service.
type Appender interface {
	Append(ctx context.Context, typ, key string, data interface{}) error
}

type Repo struct{ db *sql.DB }

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Append(ctx context.Context, typ, key string, data interface{}) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		typ, key, string(buf), time.Now().Unix())
	return err
}
