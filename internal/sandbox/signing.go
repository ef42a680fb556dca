package sandbox

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"
)

// computeMAC returns HMAC-SHA256(key, nonce + "." + timestamp + "." + bodyHash)
// as a hex string. Both ends of the attestation scheme derive it this way.
func computeMAC(key, nonce, timestamp, bodyHash string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(nonce + "." + timestamp + "." + bodyHash))
	return hex.EncodeToString(mac.Sum(nil))
}

// signRequest adds client attestation headers to a sandbox request.
func signRequest(req *http.Request, apiKey string, body []byte) {
	nonce := generateNonce()
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	req.Header.Set("X-Client-Nonce", nonce)
	req.Header.Set("X-Client-Timestamp", timestamp)
	req.Header.Set("X-Client-Signature", computeMAC(apiKey, nonce, timestamp, sha256Hex(body)))
}

// VerifySignature checks whether the given headers produce a valid MAC.
// Exported so the service side can reference the same algorithm.
func VerifySignature(apiKey, nonce, timestamp, bodyHash, signature string) bool {
	expected := computeMAC(apiKey, nonce, timestamp, bodyHash)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func generateNonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
