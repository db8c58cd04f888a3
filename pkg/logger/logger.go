package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"project-pulse/config"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

func Init(cfg *config.Config) *zerolog.Logger {
	return New(cfg, os.Stdout)
}

// New builds the base logger writing to out. Production emits JSON, other
// environments get the colored console writer with caller info.
func New(cfg *config.Config, out io.Writer) *zerolog.Logger {

	// Set global level based on environment
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var baseLogger zerolog.Logger

	if cfg.IsProduction() {
		baseLogger = zerolog.New(out)
	} else {
		baseLogger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    false,
			PartsOrder: []string{
				"time", "level", "caller", "service", "component", "message", "err",
			},
			FormatLevel: func(i any) string {
				return strings.ToUpper(fmt.Sprintf("[%s]", i))
			},
			FormatCaller: func(caller any) string {
				return fmt.Sprintf("(%s)", caller)
			},
		})
	}

	baseLogger = baseLogger.With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("env", cfg.Env).
		Logger()

	if !cfg.IsProduction() {
		baseLogger = baseLogger.With().Caller().Logger()
	}

	log.SetOutput(baseLogger)
	log.SetFlags(0)

	return &baseLogger
}

// Component derives a child logger tagged with the component name.
func Component(base *zerolog.Logger, name string) *zerolog.Logger {
	l := base.With().Str("component", name).Logger()
	return &l
}
