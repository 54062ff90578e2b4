package config

import (
	"os"
	"strings"
)

type Config struct {
	HTTPAddr    string
	CORSOrigins []string

	DBDriver string
	DBDSN    string

	JWTSecret string

	AssetBasePath string

	// Payment gateway
	PaymentBaseURL      string
	PaymentMerchantCode string
	PaymentAPIKey       string
	PaymentCallbackURL  string
	PaymentReturnURL    string
	ExplanationPriceIDR int64

	// WhatsApp messaging API
	WhatsAppBaseURL    string
	WhatsAppToken      string
	WhatsAppAdminPhone string
}

func FromEnv() Config {
	return Config{
		HTTPAddr:    envOr("HTTP_ADDR", ":8080"),
		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		JWTSecret: envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),

		AssetBasePath: envOr("ASSET_BASE_PATH", "./data"),

		PaymentBaseURL:      os.Getenv("PAYMENT_BASE_URL"),
		PaymentMerchantCode: os.Getenv("PAYMENT_MERCHANT_CODE"),
		PaymentAPIKey:       os.Getenv("PAYMENT_API_KEY"),
		PaymentCallbackURL:  os.Getenv("PAYMENT_CALLBACK_URL"),
		PaymentReturnURL:    os.Getenv("PAYMENT_RETURN_URL"),
		ExplanationPriceIDR: envInt64("EXPLANATION_PRICE_IDR", 25000),

		WhatsAppBaseURL:    os.Getenv("WHATSAPP_BASE_URL"),
		WhatsAppToken:      os.Getenv("WHATSAPP_TOKEN"),
		WhatsAppAdminPhone: os.Getenv("WHATSAPP_ADMIN_PHONE"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt64(k string, def int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var n int64
	for _, r := range v {
		if r < '0' || r > '9' {
			return def
		}
		n = n*10 + int64(r-'0')
	}
	return n
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
