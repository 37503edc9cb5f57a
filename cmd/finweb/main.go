// Command finweb searches a news API, scrapes every article page to a single
// line of visible text and optionally forwards each text to a local model.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/morikuni/failure/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := newRootCmd(newOptions()).Execute(); err != nil {
		log.Error().Err(err).Msg("run failed")
		fmt.Fprintf(os.Stderr, "Error: %s\n", userMessage(err))
		os.Exit(1)
	}
}

func userMessage(err error) string {
	if fmsg := failure.MessageOf(err); fmsg != "" {
		return fmsg.String()
	}
	return err.Error()
}
