// Package auth signs REST requests with the exchange's HMAC-SHA256 scheme.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"time"
)

// Header names sent with every signed request.
const (
	HeaderKey        = "KC-API-KEY"
	HeaderSign       = "KC-API-SIGN"
	HeaderTimestamp  = "KC-API-TIMESTAMP"
	HeaderPassphrase = "KC-API-PASSPHRASE"
	HeaderKeyVersion = "KC-API-KEY-VERSION"

	// KeyVersion 2 sends the passphrase HMAC'd with the secret instead of
	// in clear.
	KeyVersion = "2"
)

var ErrMissingCredentials = errors.New("api key, secret and passphrase are required")

// Credentials holds an API key triple.
type Credentials struct {
	Key        string
	Secret     string
	Passphrase string
}

// NewCredentials validates and returns a credential triple.
func NewCredentials(key, secret, passphrase string) (*Credentials, error) {
	if key == "" || secret == "" || passphrase == "" {
		return nil, ErrMissingCredentials
	}
	return &Credentials{Key: key, Secret: secret, Passphrase: passphrase}, nil
}

// SignRequest returns the authentication headers for one request.
// The signed string is timestamp_ms + method + path + body, where path
// includes any query string.
func (c *Credentials) SignRequest(method, path, body string, now time.Time) map[string]string {
	ts := strconv.FormatInt(now.UnixMilli(), 10)

	return map[string]string{
		HeaderKey:        c.Key,
		HeaderSign:       c.sign(ts + method + path + body),
		HeaderTimestamp:  ts,
		HeaderPassphrase: c.sign(c.Passphrase),
		HeaderKeyVersion: KeyVersion,
	}
}

func (c *Credentials) sign(message string) string {
	mac := hmac.New(sha256.New, []byte(c.Secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
