// Package auth provides Binance API authentication using HMAC-SHA256 signatures.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// APIKeyHeader carries the API key on every authenticated request,
// including the user data stream listen-key exchange.
const APIKeyHeader = "X-MBX-APIKEY"

// DefaultRecvWindow is the validity window sent with signed requests.
const DefaultRecvWindow = 5 * time.Second

// Credentials holds the API key and secret for signing requests.
type Credentials struct {
	APIKey    string // API key from the Binance dashboard
	SecretKey string // Secret used for HMAC signing

	// RecvWindow bounds how long a signed request stays valid server-side.
	RecvWindow time.Duration

	// now is overridable in tests.
	now func() time.Time
}

// LoadCredentials builds credentials from an API key plus either an inline
// secret or a path to a file containing it.
func LoadCredentials(apiKey, secret, secretPath string) (*Credentials, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if secret == "" && secretPath == "" {
		return nil, fmt.Errorf("secret key or secret key path is required")
	}

	if secret == "" {
		var err error
		secret, err = LoadSecret(secretPath)
		if err != nil {
			return nil, fmt.Errorf("load secret key: %w", err)
		}
	}

	return &Credentials{
		APIKey:     apiKey,
		SecretKey:  secret,
		RecvWindow: DefaultRecvWindow,
	}, nil
}

// LoadSecret reads a secret key from a file, trimming surrounding whitespace.
func LoadSecret(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read secret file: %w", err)
	}

	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", path)
	}
	return secret, nil
}

// Headers returns the headers every authenticated request carries.
func (c *Credentials) Headers() map[string]string {
	return map[string]string{APIKeyHeader: c.APIKey}
}

// SignQuery adds timestamp and recvWindow to params and returns the encoded
// query string with the signature appended as the final parameter.
func (c *Credentials) SignQuery(params url.Values) string {
	if params == nil {
		params = url.Values{}
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}

	if c.RecvWindow > 0 {
		params.Set("recvWindow", strconv.FormatInt(c.RecvWindow.Milliseconds(), 10))
	}
	params.Set("timestamp", strconv.FormatInt(now().UnixMilli(), 10))

	query := params.Encode()
	return query + "&signature=" + c.Sign(query)
}

// Sign returns the hex-encoded HMAC-SHA256 of payload under the secret key.
// Message format: the exact query string (or body) sent to the server.
func (c *Credentials) Sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.SecretKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
