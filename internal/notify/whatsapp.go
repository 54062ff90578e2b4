// Package notify sends WhatsApp messages through a token-authenticated
// messaging API.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("konfigurasi WhatsApp API belum lengkap")

type WhatsAppClient struct {
	HTTP       *http.Client
	BaseURL    string
	Token      string
	AdminPhone string
}

func NewWhatsAppClient(baseURL, token, adminPhone string) *WhatsAppClient {
	return &WhatsAppClient{
		HTTP:       &http.Client{Timeout: 15 * time.Second},
		BaseURL:    baseURL,
		Token:      token,
		AdminPhone: adminPhone,
	}
}

type sendResponse struct {
	Status bool   `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// SendMessage posts one message. The API answers 200 with a status flag;
// both transport errors and status=false surface as errors for the caller
// to log (no retry).
func (c *WhatsAppClient) SendMessage(ctx context.Context, to, message string) error {
	if c.BaseURL == "" || c.Token == "" {
		return ErrNotConfigured
	}
	form := url.Values{}
	form.Set("target", to)
	form.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/send", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", c.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp api status %d", resp.StatusCode)
	}
	var sr sendResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return fmt.Errorf("whatsapp api response tidak valid: %w", err)
	}
	if !sr.Status {
		return fmt.Errorf("whatsapp api menolak pesan: %s", sr.Reason)
	}
	return nil
}

// NotifyAdmin sends to the configured admin phone number.
func (c *WhatsAppClient) NotifyAdmin(ctx context.Context, message string) error {
	if c.AdminPhone == "" {
		return ErrNotConfigured
	}
	return c.SendMessage(ctx, c.AdminPhone, message)
}
