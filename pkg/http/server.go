package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/drorv/scanhook/pkg/webhook"
)

const (
	timeout = 3 * time.Second

	signatureHeader = "X-Nightfall-Signature"
	timestampHeader = "X-Nightfall-Timestamp"
)

type httpServer struct {
	httpPort  int
	serverURL *url.URL // Public base URL, to compose viewer links.

	signingSecret string

	// notify emits a human-readable notification when a verified callback
	// reports findings. The default writes to the log.
	notify func(msg string)
}

func newHTTPServer(cmd *cli.Command) *httpServer {
	return &httpServer{
		httpPort:      cmd.Int("http-port"),
		serverURL:     baseURL(cmd.String("server-url")),
		signingSecret: cmd.String("nightfall-signing-secret"),
	}
}

// baseURL converts the given address (e.g. "example.ngrok.io") into a URL.
// If the address is empty or invalid, this function returns a nil reference.
func baseURL(addr string) *url.URL {
	if addr == "" {
		return nil
	}

	// Default to an HTTPS scheme: webhook servers are normally exposed
	// through a TLS-terminating tunnel or load balancer.
	if !strings.Contains(addr, "://") {
		addr = "https://" + addr
	}

	// Strip any suffix after the address.
	u, err := url.Parse(addr)
	if err != nil {
		return nil
	}
	if u.Host == "" {
		return nil
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""

	return u
}

// run starts the HTTP server that exposes the webhook receiver and the
// findings viewer. This is blocking, to keep the scanhook server running.
func (s *httpServer) run() error {
	http.HandleFunc("GET /{$}", s.pingHandler)
	http.HandleFunc("POST /ingest", s.ingestHandler)
	http.HandleFunc("GET /view", s.viewHandler)

	if s.signingSecret == "" {
		log.Warn().Msg("signing secret is not configured - all webhook callbacks will be rejected")
	}
	if s.serverURL == nil {
		log.Warn().Msg("server URL is not configured - notifications will omit viewer links")
	}

	server := &http.Server{
		Addr:         net.JoinHostPort("", strconv.Itoa(s.httpPort)),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	log.Info().Msgf("HTTP server listening on port %d", s.httpPort)
	err := server.ListenAndServe()
	if err != nil {
		log.Err(err).Send()
		return err
	}

	return nil
}

// pingHandler is a trivial liveness check.
func (s *httpServer) pingHandler(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("Hello World"))
}

// ingestHandler checks and processes asynchronous file-scan results,
// which Nightfall sends to this webhook endpoint over HTTP.
func (s *httpServer) ingestHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	l := log.With().Str("url_path", r.URL.EscapedPath()).
		Str("request_id", shortuuid.New()).Logger()
	l.Info().Msg("received webhook callback")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		l.Warn().Err(err).Msg("failed to read request body")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	var p webhook.Payload
	if err := json.Unmarshal(body, &p); err != nil {
		l.Warn().Err(err).Msg("bad request: body is not JSON")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Endpoint-registration handshake: echo the challenge value verbatim.
	// This path is intentionally unauthenticated - it carries no sensitive
	// data, and it's how Nightfall confirms ownership of a new endpoint.
	if p.Challenge != "" {
		l.Debug().Msg("replied to endpoint-registration challenge")
		_, _ = w.Write([]byte(p.Challenge))
		return
	}

	// The payload's fields must not be acted on before this succeeds.
	sig := r.Header.Get(signatureHeader)
	ts := r.Header.Get(timestampHeader)
	if !webhook.Valid(l, s.signingSecret, sig, ts, body) {
		l.Warn().Str("signature", sig).Str("timestamp", ts).
			Msg("webhook verification failed")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Invalid webhook"))
		return
	}

	if !p.FindingsPresent {
		l.Info().Msg("no sensitive data present")
		return
	}

	s.notifyFindings(l, p)
}

// notifyFindings composes and emits a human-readable notification: where to
// download the findings, where to view them in this app, and until when.
// The findings URL is percent-encoded for safe embedding in the viewer link.
func (s *httpServer) notifyFindings(l zerolog.Logger, p webhook.Payload) {
	viewerURL := ""
	if s.serverURL != nil {
		viewerURL = fmt.Sprintf("%s/view?findings_url=%s", s.serverURL, url.QueryEscape(p.FindingsURL))
	}

	msg := fmt.Sprintf("Sensitive data present. Findings available until %s.\n\nDownload:\n%s\n\nView:\n%s\n",
		p.ValidUntil, p.FindingsURL, viewerURL)

	if s.notify != nil {
		s.notify(msg)
		return
	}

	l.Info().Str("valid_until", p.ValidUntil).Msg(msg)
}
