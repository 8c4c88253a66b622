package events

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader carries the HMAC of a forwarded body.
const SignatureHeader = "X-Excbridge-Signature"

var errBadSignature = errors.New("events: signature verification failed")

// Sign returns the HMAC-SHA256 of body in "sha256=<hex>" form.
func Sign(body []byte, secret string) string {
	return "sha256=" + hex.EncodeToString(computeMAC(body, secret))
}

// VerifySignature checks a signature produced by Sign. A bare hex digest is
// accepted too. Every failure returns the same error.
func VerifySignature(body []byte, signature, secret string) error {
	if secret == "" || signature == "" {
		return errBadSignature
	}
	actual, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	if err != nil {
		return errBadSignature
	}
	if subtle.ConstantTimeCompare(computeMAC(body, secret), actual) != 1 {
		return errBadSignature
	}
	return nil
}

func computeMAC(body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}
