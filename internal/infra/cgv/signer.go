package cgv

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"
)

const (
	headerSignature = "x-signature"
	headerTimestamp = "x-timestamp"
)

// Signer produces the request signature the CGV API expects: a base64
// HMAC-SHA256 over "{timestamp}|{path}|{body}" keyed by a pre-shared secret.
type Signer struct {
	secret []byte
}

// NewSigner returns a Signer for the given secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign computes the signature. path must not contain the query string and
// body is empty for GET requests.
func (s *Signer) Sign(path, timestamp, body string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(timestamp + "|" + path + "|" + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Headers returns the signature headers for a bodiless request made at now.
func (s *Signer) Headers(path string, now time.Time) map[string]string {
	ts := strconv.FormatInt(now.Unix(), 10)
	return map[string]string{
		headerSignature: s.Sign(path, ts, ""),
		headerTimestamp: ts,
	}
}
