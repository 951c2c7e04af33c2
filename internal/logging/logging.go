package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug  bool
	Pretty bool
}

// Init replaces the global zerolog logger.
func Init(cfg Config) {
	var w io.Writer = os.Stdout
	if cfg.Pretty {
		w = zerolog.NewConsoleWriter()
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(w).Level(level).With().Timestamp().Caller().Logger()
}
