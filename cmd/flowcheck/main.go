package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-e2e/fixtures"
	"github.com/jrsteele09/go-auth-e2e/flow"
	"github.com/jrsteele09/go-auth-e2e/httpclient"
	"github.com/jrsteele09/go-auth-e2e/internal/config"
	"github.com/jrsteele09/go-auth-e2e/internal/report"
)

func main() {
	c := config.New()
	setupLogging(c.GetEnv())
	displayAppname(c.GetAppName())

	ok, err := run(c)
	if err != nil {
		log.Fatal().Err(err).Msg("flow check aborted")
	}
	if !ok {
		os.Exit(1)
	}
}

func run(c config.Config) (ok bool, returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	ctx := context.Background()

	log.Info().
		Str("base_url", c.GetBaseURL()).
		Str("db_path", c.GetDatabasePath()).
		Msg("starting flow check")

	store, err := fixtures.OpenSQLStore(c.GetDatabasePath())
	if err != nil {
		return false, fmt.Errorf("open fixture store: %w", err)
	}
	defer store.Close()

	bundle, err := fixtures.NewBuilder().Seed(ctx, store)
	if err != nil {
		return false, fmt.Errorf("seed fixtures: %w", err)
	}

	rt := flow.NewRuntime(c.GetBaseURL(), httpclient.New(c.GetHTTPTimeout()), flow.Outputs{
		flow.KeySessionToken: bundle.SessionToken,
		flow.KeyClientID:     bundle.ClientID,
		flow.KeyClientSecret: bundle.ClientSecret,
		flow.KeyRedirectURI:  bundle.RedirectURI,
		flow.KeyUserID:       bundle.UserID,
	})

	summary := flow.NewRunner(rt, flow.Stages()).Run(ctx)
	report.Print(os.Stdout, summary)

	return summary.OK(), nil
}

func setupLogging(env string) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if env == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
