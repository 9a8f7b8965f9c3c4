package guardcode

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"strings"
	"time"
)

const (
	// Length is the number of symbols in a code.
	Length = 5

	// Period is the validity window of a single code.
	Period = 30 * time.Second

	alphabet = "23456789BCDFGHJKMNPQRTVWXY"
)

// ErrMalformedSecret is returned when the shared secret is empty or not valid base64.
var ErrMalformedSecret = errors.New("guardcode: malformed shared secret")

// DecodeSecret decodes a base64 shared secret as stored in maFiles.
// Both padded and unpadded encodings are accepted.
func DecodeSecret(secret string) ([]byte, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMalformedSecret
	}

	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		key, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(secret, "="))
		if err != nil {
			return nil, ErrMalformedSecret
		}
	}
	if len(key) == 0 {
		return nil, ErrMalformedSecret
	}
	return key, nil
}

// Generate returns the code for the shared secret at time t.
func Generate(secret string, t time.Time) (string, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}
	return generate(key, step(t)), nil
}

// Validate reports whether code matches the secret at time t, allowing
// skew neighbouring periods on each side for clock drift.
func Validate(secret, code string, t time.Time, skew int) bool {
	key, err := DecodeSecret(secret)
	if err != nil || len(code) != Length {
		return false
	}
	code = strings.ToUpper(code)

	current := step(t)
	for i := -skew; i <= skew; i++ {
		s := int64(current) + int64(i)
		if s < 0 {
			continue
		}
		if hmac.Equal([]byte(generate(key, uint64(s))), []byte(code)) {
			return true
		}
	}
	return false
}

// Remaining returns how long the code generated at t stays valid.
func Remaining(t time.Time) time.Duration {
	elapsed := time.Duration(t.Unix()%int64(Period/time.Second)) * time.Second
	return Period - elapsed
}

func step(t time.Time) uint64 {
	return uint64(t.Unix() / int64(Period/time.Second))
}

func generate(key []byte, counter uint64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	full := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < Length; i++ {
		b.WriteByte(alphabet[full%uint32(len(alphabet))])
		full /= uint32(len(alphabet))
	}
	return b.String()
}
