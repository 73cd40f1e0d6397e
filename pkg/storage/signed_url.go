package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignedURLSigner mints and verifies download tokens for archived exports so
// a browser can fetch a file without carrying the bearer header.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

// Generate returns a token binding the schedule to its archived filename.
func (s *SignedURLSigner) Generate(scheduleID, filename string) (string, time.Time, error) {
	if scheduleID == "" || filename == "" {
		return "", time.Time{}, fmt.Errorf("scheduleID and filename required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(filename))
	signature := s.sign(scheduleID, strconv.FormatInt(expiresAt.Unix(), 10), encoded)
	token := strings.Join([]string{scheduleID, strconv.FormatInt(expiresAt.Unix(), 10), encoded, signature}, ".")
	return token, expiresAt, nil
}

// Parse verifies a token and returns the schedule id and filename it was
// minted for. When allowExpired is true the timestamp check is skipped, which
// cleanup routines use to resolve stale files.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (scheduleID, filename string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, fmt.Errorf("malformed download token")
	}
	scheduleID, ts, encoded, signature := parts[0], parts[1], parts[2], parts[3]

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("decode filename: %w", err)
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("invalid expiry timestamp")
	}
	expiresAt = time.Unix(expUnix, 0)

	expected := s.sign(scheduleID, ts, encoded)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", "", time.Time{}, fmt.Errorf("invalid token signature")
	}
	if !allowExpired && time.Now().After(expiresAt) {
		return "", "", time.Time{}, fmt.Errorf("download token expired")
	}
	return scheduleID, string(raw), expiresAt, nil
}

func (s *SignedURLSigner) sign(scheduleID, ts, encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%s|%s", scheduleID, ts, encoded)
	return hex.EncodeToString(mac.Sum(nil))
}
