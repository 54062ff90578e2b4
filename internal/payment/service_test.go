package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestSignatureRoundTrip(t *testing.T) {
	sig := CallbackSignature("M001", 25000, "TO-abc", "secret")
	if !VerifyCallback("M001", 25000, "TO-abc", "secret", sig) {
		t.Fatal("valid signature rejected")
	}
	if VerifyCallback("M001", 25000, "TO-abc", "secret", "deadbeef") {
		t.Fatal("forged signature accepted")
	}
	if VerifyCallback("M001", 25001, "TO-abc", "secret", sig) {
		t.Fatal("signature accepted for a different amount")
	}
}

func TestCreateSignatureFieldsMatter(t *testing.T) {
	a := CreateSignature("M001", "o1", 100, "k")
	b := CreateSignature("M001", "o2", 100, "k")
	c := CreateSignature("M001", "o1", 101, "k")
	if a == b || a == c {
		t.Fatal("signature does not bind order id and amount")
	}
}

func newTestService(store Store) *Service {
	gw := &GatewayClient{MerchantCode: "M001", APIKey: "secret"}
	return NewService(store, gw, nil, nil, quietLogger())
}

func seedPending(t *testing.T, store Store, orderID string) Payment {
	t.Helper()
	p := Payment{
		OrderID: orderID, UserID: "user-1", TryoutID: "to-1",
		Amount: 25000, Status: StatusPending, CreatedAt: 1, UpdatedAt: 1,
	}
	if err := store.Create(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCallbackSuccessUnlocks(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	svc := newTestService(store)
	seedPending(t, store, "TO-1")

	cb := Callback{
		MerchantCode: "M001", OrderID: "TO-1", Amount: "25000", ResultCode: "00",
		Signature: CallbackSignature("M001", 25000, "TO-1", "secret"),
	}
	p, err := svc.HandleCallback(ctx, cb)
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != StatusSuccess {
		t.Fatalf("status = %s, want success", p.Status)
	}

	unlocked, err := svc.IsUnlocked(ctx, "user-1", "to-1")
	if err != nil || !unlocked {
		t.Fatalf("unlocked=%v err=%v, want true", unlocked, err)
	}
}

func TestCallbackFailureDoesNotUnlock(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	svc := newTestService(store)
	seedPending(t, store, "TO-1")

	cb := Callback{
		MerchantCode: "M001", OrderID: "TO-1", Amount: "25000", ResultCode: "01",
		Signature: CallbackSignature("M001", 25000, "TO-1", "secret"),
	}
	p, err := svc.HandleCallback(ctx, cb)
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", p.Status)
	}
	if unlocked, _ := svc.IsUnlocked(ctx, "user-1", "to-1"); unlocked {
		t.Fatal("failed payment unlocked explanations")
	}
}

// A mismatched signature must leave the payment row untouched.
func TestCallbackBadSignatureMutatesNothing(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	svc := newTestService(store)
	seedPending(t, store, "TO-1")

	cb := Callback{
		MerchantCode: "M001", OrderID: "TO-1", Amount: "25000", ResultCode: "00",
		Signature: "0123456789abcdef0123456789abcdef",
	}
	if _, err := svc.HandleCallback(ctx, cb); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}

	p, err := store.GetByOrderID(ctx, "TO-1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != StatusPending {
		t.Fatalf("status mutated to %s on bad signature", p.Status)
	}
}

// A valid signature over a tampered amount fails the amount cross-check.
func TestCallbackAmountMismatchRejected(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	svc := newTestService(store)
	seedPending(t, store, "TO-1")

	cb := Callback{
		MerchantCode: "M001", OrderID: "TO-1", Amount: "100", ResultCode: "00",
		Signature: CallbackSignature("M001", 100, "TO-1", "secret"),
	}
	if _, err := svc.HandleCallback(ctx, cb); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
	p, _ := store.GetByOrderID(ctx, "TO-1")
	if p.Status != StatusPending {
		t.Fatalf("status mutated to %s on amount mismatch", p.Status)
	}
}

// Success is permanent: a late duplicate callback cannot flip a settled row.
func TestSettledPaymentNotOverwritten(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	svc := newTestService(store)
	seedPending(t, store, "TO-1")

	ok := Callback{
		MerchantCode: "M001", OrderID: "TO-1", Amount: "25000", ResultCode: "00",
		Signature: CallbackSignature("M001", 25000, "TO-1", "secret"),
	}
	if _, err := svc.HandleCallback(ctx, ok); err != nil {
		t.Fatal(err)
	}

	late := ok
	late.ResultCode = "01"
	if _, err := svc.HandleCallback(ctx, late); err == nil {
		t.Fatal("duplicate callback re-settled the payment")
	}
	if unlocked, _ := svc.IsUnlocked(ctx, "user-1", "to-1"); !unlocked {
		t.Fatal("settled unlock lost after duplicate callback")
	}
}

func TestCreateBuildsSignedInvoice(t *testing.T) {
	ctx := context.Background()
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/merchant/createInvoice" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(InvoiceResponse{Reference: "ref-1", PaymentURL: "https://pay.example/x", StatusCode: "00"})
	}))
	defer srv.Close()

	store := NewInMemoryStore()
	gw := NewGatewayClient(srv.URL, "M001", "secret", "https://app.example/callback", "https://app.example/return")
	svc := NewService(store, gw, nil, nil, quietLogger())

	out, err := svc.Create(ctx, CreateInput{
		UserID: "user-1", TryoutID: "to-1", TryoutTitle: "Tryout 1",
		Amount: 25000, CustomerName: "Budi", CustomerPhone: "6281234", CustomerEmail: "budi@example.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.PaymentURL != "https://pay.example/x" || out.Reference != "ref-1" {
		t.Fatalf("create output: %+v", out)
	}

	wantSig := CreateSignature("M001", got["merchantOrderId"].(string), int64(got["paymentAmount"].(float64)), "secret")
	if got["signature"] != wantSig {
		t.Fatalf("request signature = %v, want %v", got["signature"], wantSig)
	}

	p, err := store.GetByOrderID(ctx, out.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != StatusPending {
		t.Fatalf("new payment status = %s, want pending", p.Status)
	}
}

func TestCreateRefusedWhenAlreadyUnlocked(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	_ = store.Create(ctx, Payment{OrderID: "TO-0", UserID: "user-1", TryoutID: "to-1", Amount: 25000, Status: StatusSuccess})
	svc := newTestService(store)

	_, err := svc.Create(ctx, CreateInput{UserID: "user-1", TryoutID: "to-1", Amount: 25000})
	if !errors.Is(err, ErrAlreadyUnlocked) {
		t.Fatalf("err = %v, want ErrAlreadyUnlocked", err)
	}
}
