package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GatewayClient talks to the payment gateway's invoice API.
type GatewayClient struct {
	HTTP         *http.Client
	BaseURL      string
	MerchantCode string
	APIKey       string
	CallbackURL  string
	ReturnURL    string
}

func NewGatewayClient(baseURL, merchantCode, apiKey, callbackURL, returnURL string) *GatewayClient {
	return &GatewayClient{
		HTTP:         &http.Client{Timeout: 15 * time.Second},
		BaseURL:      baseURL,
		MerchantCode: merchantCode,
		APIKey:       apiKey,
		CallbackURL:  callbackURL,
		ReturnURL:    returnURL,
	}
}

var ErrGatewayNotConfigured = errors.New("konfigurasi payment gateway belum lengkap")

type InvoiceRequest struct {
	OrderID       string
	Amount        int64
	ProductDetail string
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
}

type InvoiceResponse struct {
	Reference  string `json:"reference"`
	PaymentURL string `json:"paymentUrl"`
	StatusCode string `json:"statusCode"`
	Message    string `json:"statusMessage"`
}

// CreateInvoice posts a signed invoice-creation request. A non-2xx status or
// an unparseable body is an upstream error; the caller maps it to a 500.
func (c *GatewayClient) CreateInvoice(ctx context.Context, req InvoiceRequest) (InvoiceResponse, error) {
	if c.BaseURL == "" || c.MerchantCode == "" || c.APIKey == "" {
		return InvoiceResponse{}, ErrGatewayNotConfigured
	}

	body := map[string]interface{}{
		"merchantCode":    c.MerchantCode,
		"merchantOrderId": req.OrderID,
		"paymentAmount":   req.Amount,
		"productDetails":  req.ProductDetail,
		"customerVaName":  req.CustomerName,
		"phoneNumber":     req.CustomerPhone,
		"email":           req.CustomerEmail,
		"callbackUrl":     c.CallbackURL,
		"returnUrl":       c.ReturnURL,
		"signature":       CreateSignature(c.MerchantCode, req.OrderID, req.Amount, c.APIKey),
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return InvoiceResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/merchant/createInvoice", bytes.NewReader(buf))
	if err != nil {
		return InvoiceResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return InvoiceResponse{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return InvoiceResponse{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return InvoiceResponse{}, fmt.Errorf("gateway status %d: %s", resp.StatusCode, truncate(raw, 256))
	}
	var inv InvoiceResponse
	if err := json.Unmarshal(raw, &inv); err != nil {
		return InvoiceResponse{}, fmt.Errorf("gateway response tidak valid: %w", err)
	}
	if inv.StatusCode != "" && inv.StatusCode != "00" {
		return InvoiceResponse{}, fmt.Errorf("gateway menolak transaksi: %s %s", inv.StatusCode, inv.Message)
	}
	return inv, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
