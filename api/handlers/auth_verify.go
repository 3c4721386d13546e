package handlers

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/mr-tron/base58"
)

// SigningMessage is the byte string a wallet signs to authenticate a request.
func SigningMessage(timestamp int64, method, path string, body []byte) []byte {
	msg := make([]byte, 0, len(body)+len(method)+len(path)+24)
	msg = strconv.AppendInt(msg, timestamp, 10)
	msg = append(msg, '\n')
	msg = append(msg, method...)
	msg = append(msg, '\n')
	msg = append(msg, path...)
	msg = append(msg, '\n')
	msg = append(msg, body...)
	return msg
}

// verifyEd25519Signature verifies a base58 Ed25519 signature by a Solana wallet.
func verifyEd25519Signature(publicKeyBase58 string, message []byte, signatureBase58 string) (bool, error) {
	publicKeyBytes, err := base58.Decode(publicKeyBase58)
	if err != nil {
		return false, fmt.Errorf("failed to decode public key: %w", err)
	}
	if len(publicKeyBytes) != ed25519.PublicKeySize {
		return false, fmt.Errorf("invalid public key size: expected %d, got %d", ed25519.PublicKeySize, len(publicKeyBytes))
	}

	signatureBytes, err := base58.Decode(signatureBase58)
	if err != nil {
		return false, fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(signatureBytes) != ed25519.SignatureSize {
		return false, fmt.Errorf("invalid signature size: expected %d, got %d", ed25519.SignatureSize, len(signatureBytes))
	}

	return ed25519.Verify(ed25519.PublicKey(publicKeyBytes), message, signatureBytes), nil
}

// ClientSignature returns the hex HMAC-SHA256 of body followed by the
// decimal timestamp.
func ClientSignature(secret string, body []byte, timestamp int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyClientSignature(secret string, body []byte, timestamp int64, signature string) bool {
	expected := ClientSignature(secret, body, timestamp)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// parseTimestamp parses a unix-seconds header and checks it against now.
func parseTimestamp(raw string, now time.Time, maxSkew time.Duration) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("missing timestamp")
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp")
	}
	skew := now.Sub(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > maxSkew {
		return 0, fmt.Errorf("timestamp expired")
	}
	return ts, nil
}
