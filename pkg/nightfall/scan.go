package nightfall

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

// DefaultSampleFile is a small CSV with fake credit card
// numbers, for demonstrating a scan end to end.
const DefaultSampleFile = "sample-pci-xs.csv"

// Scan uploads a file and triggers an asynchronous sensitive-data scan of
// it, registering this app's /ingest endpoint as the results webhook.
// This is the CLI action of the "scan" command.
func Scan(ctx context.Context, cmd *cli.Command) error {
	c, err := NewClient(cmd.String("nightfall-api-key"))
	if err != nil {
		return err
	}

	serverURL := cmd.String("server-url")
	if serverURL == "" {
		return errors.New("server URL is not configured, required to register the results webhook")
	}
	webhookURL := strings.TrimSuffix(serverURL, "/") + "/ingest"

	path := cmd.Args().First()
	if path == "" {
		path = DefaultSampleFile
	}

	rules := []DetectionRule{{
		LogicalOp: "ANY",
		Detectors: []Detector{NewDetector(
			Confidence(cmd.String("min-confidence")),
			cmd.String("detector"),
			cmd.String("display-name"),
		)},
	}}

	log.Info().Str("file", path).Str("webhook_url", webhookURL).Msg("triggering scan")
	resp, err := c.ScanFile(ctx, path, webhookURL, rules)
	if err != nil {
		log.Err(err).Msg("scan request failed")
		return err
	}

	log.Info().Str("scan_id", resp.ID).Str("message", resp.Message).
		Msg("scan started - results will arrive at the webhook")
	return nil
}
