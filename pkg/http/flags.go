package http

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

const (
	DefaultPort = 8080
)

// Flags defines CLI flags to configure the HTTP server. These flags can also
// be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "http-port",
			Usage: "port for the webhook receiver and findings viewer",
			Value: DefaultPort,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("PORT"),
				toml.TOML("http.port", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "server-url",
			Usage: "public base URL of this server, for webhook registration and viewer links",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("NIGHTFALL_SERVER_URL"),
				toml.TOML("http.server_url", configFilePath),
			),
		},
	}
}
