package testlog

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Start routes the global logger through the test's output so log lines
// attach to the right test and stay quiet on success.
func Start(t *testing.T) {
	t.Helper()
	log.Logger = zerolog.New(zerolog.NewTestWriter(t)).With().Str("test", t.Name()).Logger()
}
