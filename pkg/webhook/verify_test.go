package webhook

import (
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func unixNow(offset time.Duration) string {
	return strconv.FormatInt(time.Now().Add(offset).Unix(), 10)
}

func TestValid(t *testing.T) {
	secret := "super-secret-signing-key"
	body := []byte(`{"findingsPresent":true,"findingsURL":"https://x/y"}`)

	freshTS := unixNow(0)
	staleTS := unixNow(-6 * time.Minute)
	futureTS := unixNow(6 * time.Minute)

	tests := []struct {
		name      string
		secret    string
		signature string
		timestamp string
		body      []byte
		want      bool
	}{
		{
			name:      "valid",
			secret:    secret,
			signature: Sign(secret, freshTS, body),
			timestamp: freshTS,
			body:      body,
			want:      true,
		},
		{
			name:      "valid_empty_body",
			secret:    secret,
			signature: Sign(secret, freshTS, nil),
			timestamp: freshTS,
			want:      true,
		},
		{
			name:      "missing_signature",
			secret:    secret,
			timestamp: freshTS,
			body:      body,
		},
		{
			name:      "missing_timestamp",
			secret:    secret,
			signature: Sign(secret, freshTS, body),
			body:      body,
		},
		{
			name:      "malformed_timestamp",
			secret:    secret,
			signature: Sign(secret, "yesterday", body),
			timestamp: "yesterday",
			body:      body,
		},
		{
			name:      "stale_timestamp_with_correct_signature",
			secret:    secret,
			signature: Sign(secret, staleTS, body),
			timestamp: staleTS,
			body:      body,
		},
		{
			name:      "future_timestamp_with_correct_signature",
			secret:    secret,
			signature: Sign(secret, futureTS, body),
			timestamp: futureTS,
			body:      body,
		},
		{
			name:      "no_secret_configured_fails_closed",
			signature: Sign("", freshTS, body),
			timestamp: freshTS,
			body:      body,
		},
		{
			name:      "wrong_secret",
			secret:    secret,
			signature: Sign("another-secret", freshTS, body),
			timestamp: freshTS,
			body:      body,
		},
		{
			name:      "tampered_body",
			secret:    secret,
			signature: Sign(secret, freshTS, body),
			timestamp: freshTS,
			body:      []byte(`{"findingsPresent":true,"findingsURL":"https://x/z"}`),
		},
		{
			name:      "tampered_signature",
			secret:    secret,
			signature: "x" + Sign(secret, freshTS, body)[1:],
			timestamp: freshTS,
			body:      body,
		},
		{
			name:      "timestamp_not_covered_by_signature",
			secret:    secret,
			signature: Sign(secret, unixNow(-time.Minute), body),
			timestamp: freshTS,
			body:      body,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Valid(zerolog.Nop(), tt.secret, tt.signature, tt.timestamp, tt.body)
			if got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
