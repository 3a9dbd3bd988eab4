package logger

import (
	"os"

	"github.com/rs/zerolog"
)

var Logger zerolog.Logger

// Init configures the global logger. Pretty output is for local development;
// production emits JSON lines.
func Init(serviceName string, level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)

	out := zerolog.New(os.Stdout)
	if pretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	Logger = out.With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// With returns a child logger tagged with a component name.
func With(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

func Debug() *zerolog.Event {
	return Logger.Debug()
}

func Info() *zerolog.Event {
	return Logger.Info()
}

func Warn() *zerolog.Event {
	return Logger.Warn()
}

func Error() *zerolog.Event {
	return Logger.Error()
}

func Fatal() *zerolog.Event {
	return Logger.Fatal()
}
