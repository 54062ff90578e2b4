// Package payment implements the explanation-unlock gate: one payment per
// (user, tryout), settled by a signature-verified gateway callback.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gameCahya/tryout-tka-sub000/internal/eventlog"
)

var ErrInvalidSignature = errors.New("signature tidak valid")

// Notifier delivers the post-payment WhatsApp messages. Failures are logged,
// never retried, and never fail the payment itself.
type Notifier interface {
	SendMessage(ctx context.Context, to, message string) error
	NotifyAdmin(ctx context.Context, message string) error
}

type Service struct {
	store   Store
	gateway *GatewayClient
	notify  Notifier
	events  eventlog.Appender
	log     *logrus.Logger
	now     func() int64
}

func NewService(store Store, gateway *GatewayClient, notify Notifier, events eventlog.Appender, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{
		store:   store,
		gateway: gateway,
		notify:  notify,
		events:  events,
		log:     log,
		now:     func() int64 { return time.Now().Unix() },
	}
}

type CreateInput struct {
	UserID        string
	TryoutID      string
	TryoutTitle   string
	Amount        int64
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
}

type CreateOutput struct {
	OrderID    string `json:"order_id"`
	PaymentURL string `json:"payment_url"`
	Reference  string `json:"reference"`
	Amount     int64  `json:"amount"`
}

// Create starts the none -> pending transition: build an order id, create the
// gateway invoice, persist the pending row. A tryout already unlocked for the
// user is refused.
func (s *Service) Create(ctx context.Context, in CreateInput) (CreateOutput, error) {
	unlocked, err := s.store.IsUnlocked(ctx, in.UserID, in.TryoutID)
	if err != nil {
		return CreateOutput{}, err
	}
	if unlocked {
		return CreateOutput{}, ErrAlreadyUnlocked
	}

	orderID := "TO-" + uuid.NewString()
	inv, err := s.gateway.CreateInvoice(ctx, InvoiceRequest{
		OrderID:       orderID,
		Amount:        in.Amount,
		ProductDetail: "Pembahasan " + in.TryoutTitle,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		CustomerEmail: in.CustomerEmail,
	})
	if err != nil {
		s.log.WithError(err).WithField("order_id", orderID).Error("create invoice failed")
		return CreateOutput{}, err
	}

	now := s.now()
	p := Payment{
		OrderID:   orderID,
		UserID:    in.UserID,
		TryoutID:  in.TryoutID,
		Amount:    in.Amount,
		Status:    StatusPending,
		Reference: inv.Reference,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return CreateOutput{}, err
	}
	return CreateOutput{OrderID: orderID, PaymentURL: inv.PaymentURL, Reference: inv.Reference, Amount: in.Amount}, nil
}

// Callback is the payload the gateway posts back after settlement.
type Callback struct {
	MerchantCode string `json:"merchantCode"`
	OrderID      string `json:"merchantOrderId"`
	Amount       string `json:"amount"`
	ResultCode   string `json:"resultCode"` // "00" success, anything else failed
	Reference    string `json:"reference"`
	Signature    string `json:"signature"`
}

// HandleCallback verifies the signature and transitions pending -> success or
// failed. A bad signature mutates nothing and is logged as a security event.
func (s *Service) HandleCallback(ctx context.Context, cb Callback) (Payment, error) {
	amount, err := strconv.ParseInt(cb.Amount, 10, 64)
	if err != nil {
		return Payment{}, fmt.Errorf("amount tidak valid: %w", err)
	}

	if !VerifyCallback(s.gateway.MerchantCode, amount, cb.OrderID, s.gateway.APIKey, cb.Signature) {
		s.log.WithFields(logrus.Fields{
			"order_id":      cb.OrderID,
			"merchant_code": cb.MerchantCode,
		}).Warn("payment callback signature mismatch")
		return Payment{}, ErrInvalidSignature
	}

	p, err := s.store.GetByOrderID(ctx, cb.OrderID)
	if err != nil {
		return Payment{}, err
	}
	if p.Amount != amount {
		s.log.WithFields(logrus.Fields{
			"order_id": cb.OrderID,
			"expected": p.Amount,
			"got":      amount,
		}).Warn("payment callback amount mismatch")
		return Payment{}, ErrInvalidSignature
	}

	status := StatusFailed
	if cb.ResultCode == "00" {
		status = StatusSuccess
	}
	if err := s.store.SetStatus(ctx, cb.OrderID, status); err != nil {
		return Payment{}, err
	}
	p.Status = status

	if s.events != nil {
		if err := s.events.Append(ctx, eventlog.TypePaymentSettled, p.OrderID, p); err != nil {
			s.log.WithError(err).Warn("event log append failed")
		}
	}
	return p, nil
}

// NotifySettlement sends the WhatsApp confirmations for a successful payment.
// Delivery failures are logged only.
func (s *Service) NotifySettlement(ctx context.Context, p Payment, buyerPhone, tryoutTitle string) {
	if s.notify == nil || p.Status != StatusSuccess {
		return
	}
	msg := fmt.Sprintf("Pembayaran %s sebesar Rp%d berhasil. Pembahasan %q sudah terbuka.", p.OrderID, p.Amount, tryoutTitle)
	if buyerPhone != "" {
		if err := s.notify.SendMessage(ctx, buyerPhone, msg); err != nil {
			s.log.WithError(err).WithField("order_id", p.OrderID).Error("buyer notification failed")
		}
	}
	if err := s.notify.NotifyAdmin(ctx, fmt.Sprintf("Order %s (Rp%d) lunas untuk tryout %q.", p.OrderID, p.Amount, tryoutTitle)); err != nil {
		s.log.WithError(err).WithField("order_id", p.OrderID).Error("admin notification failed")
	}
}

// Status returns the latest payment for (user, tryout), mapping "no payment"
// to a zero-value row with empty status.
func (s *Service) Status(ctx context.Context, userID, tryoutID string) (Payment, error) {
	return s.store.GetByUserTryout(ctx, userID, tryoutID)
}

// IsUnlocked is the capability check performed on every explanation render.
func (s *Service) IsUnlocked(ctx context.Context, userID, tryoutID string) (bool, error) {
	return s.store.IsUnlocked(ctx, userID, tryoutID)
}
