package nightfall

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

// Flags defines CLI flags to configure the Nightfall API client and webhook
// verification. These flags can also be set using environment variables and
// the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "nightfall-api-key",
			Usage: "Nightfall API key, for triggering scans",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("NIGHTFALL_API_KEY"),
				toml.TOML("nightfall.api_key", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "nightfall-signing-secret",
			Usage: "shared secret for verifying webhook callback signatures",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("NIGHTFALL_SIGNING_SECRET"),
				toml.TOML("nightfall.signing_secret", configFilePath),
			),
		},
	}
}

// ScanFlags defines the CLI flags of the "scan" command: a single detection
// rule with one detector. The defaults match Nightfall's PCI sample file.
func ScanFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "detector",
			Usage: "Nightfall detector to scan with",
			Value: "CREDIT_CARD_NUMBER",
		},
		&cli.StringFlag{
			Name:  "display-name",
			Usage: "detector display name, shown in findings",
			Value: "Credit Card Number",
		},
		&cli.StringFlag{
			Name:  "min-confidence",
			Usage: "minimum detection confidence (POSSIBLE, LIKELY, VERY_LIKELY)",
			Value: string(ConfidenceLikely),
		},
	}
}
