package http

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Start initializes and runs scanhook's HTTP server.
// This is the CLI action of the "serve" command.
func Start(_ context.Context, cmd *cli.Command) error {
	return newHTTPServer(cmd).run()
}
