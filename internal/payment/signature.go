package payment

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
)

// The gateway's signature scheme: MD5 over concatenated merchant fields plus
// the shared API key. Field order differs between the create request and the
// callback, per the gateway contract.

// CreateSignature signs a payment-creation request:
// md5(merchantCode + orderID + amount + apiKey).
func CreateSignature(merchantCode, orderID string, amount int64, apiKey string) string {
	sum := md5.Sum([]byte(merchantCode + orderID + strconv.FormatInt(amount, 10) + apiKey))
	return hex.EncodeToString(sum[:])
}

// CallbackSignature recomputes the expected callback signature:
// md5(merchantCode + amount + orderID + apiKey).
func CallbackSignature(merchantCode string, amount int64, orderID, apiKey string) string {
	sum := md5.Sum([]byte(merchantCode + strconv.FormatInt(amount, 10) + orderID + apiKey))
	return hex.EncodeToString(sum[:])
}

// VerifyCallback compares a posted signature against the recomputed one in
// constant time.
func VerifyCallback(merchantCode string, amount int64, orderID, apiKey, got string) bool {
	want := CallbackSignature(merchantCode, amount, orderID, apiKey)
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
