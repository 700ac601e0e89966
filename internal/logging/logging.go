// Package logging wires zerolog for the application and provides the
// asynchronous sink the search pipeline logs through. The sink decouples log
// processing from request-serving capacity: submission is non-blocking and a
// single consumer goroutine drains a bounded queue, so a slow or failing log
// destination can never stall a search.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-search-backend/internal/sysutil"
)

// Setup configures the global zerolog logger: level from config, RFC3339
// timestamps, and an optional pretty console writer for development. It
// returns the configured logger for components that take one explicitly.
func Setup(level string, pretty bool) zerolog.Logger {
	sysutil.SetLogLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return log.Logger
}
