package payment

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

type Payment struct {
	OrderID   string `json:"order_id"`
	UserID    string `json:"user_id"`
	TryoutID  string `json:"tryout_id"`
	Amount    int64  `json:"amount"`
	Status    Status `json:"status"`
	Reference string `json:"reference,omitempty"` // gateway-side id
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

var (
	ErrPaymentNotFound = errors.New("pembayaran tidak ditemukan")
	ErrAlreadyUnlocked = errors.New("pembahasan untuk tryout ini sudah terbuka")
)

type Store interface {
	Create(ctx context.Context, p Payment) error
	GetByOrderID(ctx context.Context, orderID string) (Payment, error)
	GetByUserTryout(ctx context.Context, userID, tryoutID string) (Payment, error)
	// SetStatus transitions a pending payment; settled rows are never
	// overwritten (success is permanent).
	SetStatus(ctx context.Context, orderID string, status Status) error
	// IsUnlocked reports whether (user, tryout) has a settled successful
	// payment, i.e. permanent explanation access.
	IsUnlocked(ctx context.Context, userID, tryoutID string) (bool, error)
}

type SQLStore struct{ db *sql.DB }

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Create(ctx context.Context, p Payment) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO payments (order_id,user_id,tryout_id,amount,status,reference,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.OrderID, p.UserID, p.TryoutID, p.Amount, string(p.Status), p.Reference, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *SQLStore) GetByOrderID(ctx context.Context, orderID string) (Payment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT order_id,user_id,tryout_id,amount,status,reference,created_at,updated_at
		FROM payments WHERE order_id=$1`, orderID)
	return scanPayment(row)
}

func (s *SQLStore) GetByUserTryout(ctx context.Context, userID, tryoutID string) (Payment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT order_id,user_id,tryout_id,amount,status,reference,created_at,updated_at
		FROM payments WHERE user_id=$1 AND tryout_id=$2 ORDER BY created_at DESC LIMIT 1`, userID, tryoutID)
	return scanPayment(row)
}

func scanPayment(row *sql.Row) (Payment, error) {
	var p Payment
	var status string
	if err := row.Scan(&p.OrderID, &p.UserID, &p.TryoutID, &p.Amount, &status, &p.Reference, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Payment{}, ErrPaymentNotFound
		}
		return Payment{}, err
	}
	p.Status = Status(status)
	return p, nil
}

func (s *SQLStore) SetStatus(ctx context.Context, orderID string, status Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE payments SET status=$1, updated_at=$2 WHERE order_id=$3 AND status=$4`,
		string(status), time.Now().Unix(), orderID, string(StatusPending))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (s *SQLStore) IsUnlocked(ctx context.Context, userID, tryoutID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE user_id=$1 AND tryout_id=$2 AND status=$3`,
		userID, tryoutID, string(StatusSuccess)).Scan(&n)
	return n > 0, err
}

// memoryStore backs tests.
type memoryStore struct {
	mu       sync.RWMutex
	payments map[string]Payment
}

func NewInMemoryStore() Store {
	return &memoryStore{payments: map[string]Payment{}}
}

func (m *memoryStore) Create(_ context.Context, p Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.OrderID] = p
	return nil
}

func (m *memoryStore) GetByOrderID(_ context.Context, orderID string) (Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[orderID]
	if !ok {
		return Payment{}, ErrPaymentNotFound
	}
	return p, nil
}

func (m *memoryStore) GetByUserTryout(_ context.Context, userID, tryoutID string) (Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest Payment
	found := false
	for _, p := range m.payments {
		if p.UserID == userID && p.TryoutID == tryoutID {
			if !found || p.CreatedAt > latest.CreatedAt {
				latest = p
				found = true
			}
		}
	}
	if !found {
		return Payment{}, ErrPaymentNotFound
	}
	return latest, nil
}

func (m *memoryStore) SetStatus(_ context.Context, orderID string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[orderID]
	if !ok || p.Status != StatusPending {
		return ErrPaymentNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now().Unix()
	m.payments[orderID] = p
	return nil
}

func (m *memoryStore) IsUnlocked(_ context.Context, userID, tryoutID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.UserID == userID && p.TryoutID == tryoutID && p.Status == StatusSuccess {
			return true, nil
		}
	}
	return false, nil
}
