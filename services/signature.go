package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// signaturePayload is the exact byte sequence the gateway signs: order id,
// a literal "|", then payment id.
func signaturePayload(orderID, paymentID string) []byte {
	return []byte(orderID + "|" + paymentID)
}

// ComputeSignature returns the lowercase hex HMAC-SHA256 of
// orderID|paymentID under secret.
func ComputeSignature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(signaturePayload(orderID, paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the expected signature and compares it to the
// supplied one in constant time.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	expected := ComputeSignature(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
