package util

import (
	"crypto/rand"
	"errors"
	"math/big"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const base62Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultCodeLength is used when a non-positive length is requested.
const DefaultCodeLength = 6

var alphabetSize = big.NewInt(int64(len(base62Chars)))

var ErrEmptyURL = errors.New("url is empty")

func ValidateURL(raw string) bool {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// NormalizeURL trims surrounding whitespace and validates the result.
func NormalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmptyURL
	}
	if !ValidateURL(trimmed) {
		return "", errors.New("url must be an absolute http or https url")
	}
	return trimmed, nil
}

// GenerateShortCode draws length symbols uniformly from [A-Za-z0-9].
// Uniqueness is the caller's concern.
func GenerateShortCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		b[i] = base62Chars[n.Int64()]
	}
	return string(b), nil
}

func IsShortCode(code string, length int) bool {
	if length <= 0 {
		length = DefaultCodeLength
	}
	if len(code) != length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(base62Chars, code[i]) < 0 {
			return false
		}
	}
	return true
}

// NewShareToken returns an opaque token for unauthenticated stats access.
func NewShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
