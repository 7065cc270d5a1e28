package carbon

import "github.com/rs/zerolog"

var logger = zerolog.Nop()

// SetLogger sets the logger used for embedded data parsing diagnostics.
func SetLogger(l zerolog.Logger) {
	logger = l.With().Str("component", "carbon").Logger()
}
