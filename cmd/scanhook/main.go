package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli/v3"

	"github.com/drorv/scanhook/pkg/http"
	"github.com/drorv/scanhook/pkg/nightfall"
	"github.com/tzrikka/xdg"
)

const (
	ConfigDirName  = "scanhook"
	ConfigFileName = "config.toml"
)

func main() {
	buildInfo, _ := debug.ReadBuildInfo()
	configFilePath := configFile()

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:  "dev",
			Usage: "simple setup, but unsafe for production",
		},
	}
	flags = append(flags, http.Flags(configFilePath)...)
	flags = append(flags, nightfall.Flags(configFilePath)...)

	cmd := &cli.Command{
		Name:    "scanhook",
		Usage:   "Trigger Nightfall file scans, and receive and view their results over HTTP webhooks",
		Version: buildInfo.Main.Version,
		Flags:   flags,
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			initLog(cmd.Bool("dev"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the webhook receiver and findings viewer",
				Action: http.Start,
			},
			{
				Name:      "scan",
				Usage:     "upload a file and trigger an asynchronous sensitive-data scan",
				ArgsUsage: "[file path]",
				Flags:     nightfall.ScanFlags(),
				Action:    nightfall.Scan,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// configFile returns the path to the app's configuration file.
// It also creates an empty file if it doesn't already exist.
func configFile() altsrc.StringSourcer {
	path, err := xdg.CreateFile(xdg.ConfigHome, ConfigDirName, ConfigFileName)
	if err != nil {
		log.Fatal().Err(err).Caller().Send()
	}
	return altsrc.StringSourcer(path)
}

// initLog initializes the logger for all scanhook commands,
// based on whether they're running in development mode or not.
func initLog(devMode bool) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	if !devMode {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Caller().Logger()
		return
	}

	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05.000",
	}).With().Caller().Logger()

	log.Warn().Msg("********** DEV MODE - UNSAFE IN PRODUCTION! **********")
}
