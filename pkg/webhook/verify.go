// Package webhook verifies the authenticity of Nightfall webhook
// callbacks, and models their JSON payloads.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// The maximum shift/delay that we allow between an inbound request's
// timestamp, and our current timestamp, to defend against replay attacks.
// See https://help.nightfall.ai/firewall-for-ai/webhook_server.
const maxDifference = 5 * time.Minute

// Payload is the JSON body that Nightfall posts to a webhook server when a
// file scan completes, or when it verifies the ownership of a new endpoint.
type Payload struct {
	Challenge       string `json:"challenge,omitempty"`
	FindingsPresent bool   `json:"findingsPresent"`
	FindingsURL     string `json:"findingsURL,omitempty"`
	ValidUntil      string `json:"validUntil,omitempty"`
	UploadID        string `json:"uploadID,omitempty"`
	RequestMetadata string `json:"requestMetadata,omitempty"`
}

// Valid reports whether an inbound webhook request was signed by Nightfall
// with the given signing secret, within the last [maxDifference] minutes.
//
// The expected signature is a hex-encoded HMAC-SHA256 digest of
// "<timestamp>:<raw body>". Verification operates on the exact raw bytes of
// the request body: re-serializing the parsed payload may change them and
// invalidate the signature. A missing or malformed input never panics and
// never errors, it simply fails the verification. An empty signing secret
// fails it too, i.e. an unconfigured server rejects everything.
func Valid(l zerolog.Logger, signingSecret, signature, timestamp string, body []byte) bool {
	if signingSecret == "" {
		l.Warn().Msg("signing secret is not configured")
		return false
	}
	if signature == "" {
		l.Warn().Msg("missing signature")
		return false
	}

	if !freshTimestamp(l, timestamp) {
		return false
	}

	mac := hmac.New(sha256.New, []byte(signingSecret))

	n, err := mac.Write(fmt.Appendf(nil, "%s:", timestamp))
	if err != nil {
		l.Err(err).Msg("HMAC write error")
		return false
	}
	if n != len(timestamp)+1 {
		return false
	}

	if n, err := mac.Write(body); err != nil || n != len(body) {
		return false
	}

	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(signature))
}

// freshTimestamp reports whether the request's timestamp (decimal Unix
// seconds) is close enough to the current time to rule out replays.
func freshTimestamp(l zerolog.Logger, timestamp string) bool {
	if timestamp == "" {
		l.Warn().Msg("missing timestamp")
		return false
	}

	secs, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		l.Warn().Str("got", timestamp).Msg("invalid timestamp")
		return false
	}

	d := time.Since(time.Unix(secs, 0))
	if d.Abs() > maxDifference {
		l.Warn().Dur("difference", d).Msg("stale timestamp")
		return false
	}

	return true
}

// Sign computes the signature that [Valid] expects for the given timestamp
// and raw body. It is used by tests and by local tooling that simulates
// Nightfall callbacks.
func Sign(signingSecret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(signingSecret))
	_, _ = mac.Write(fmt.Appendf(nil, "%s:", timestamp))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
