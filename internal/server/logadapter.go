package server

import (
	"fmt"

	"github.com/ternarybob/arbor"

	mediakit "github.com/mediakit/mediakit-go"
)

// engineLogger adapts an arbor logger to the engine's Logger interface.
type engineLogger struct {
	log arbor.ILogger
}

// WrapLogger exposes an arbor logger as a mediakit.Logger.
func WrapLogger(log arbor.ILogger) mediakit.Logger {
	return engineLogger{log: log}
}

func (l engineLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msg(fmt.Sprintf(format, args...))
}

func (l engineLogger) Infof(format string, args ...any) {
	l.log.Info().Msg(fmt.Sprintf(format, args...))
}

func (l engineLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msg(fmt.Sprintf(format, args...))
}

func (l engineLogger) Errorf(format string, args ...any) {
	l.log.Error().Msg(fmt.Sprintf(format, args...))
}
