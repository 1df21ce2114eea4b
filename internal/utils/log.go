package utils

import (
	"os"

	"github.com/rs/zerolog"
)

// Log is the logger shared by every step of the run.
var Log zerolog.Logger

func SetLogger() {
	level := zerolog.InfoLevel

	debug := len(ReadCMDLineArg("rd.instclean.debug")) > 0
	debugFromEnv := os.Getenv("INSTCLEAN_DEBUG") != ""
	if debug || debugFromEnv {
		level = zerolog.DebugLevel
	}

	Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)
}
