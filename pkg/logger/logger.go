package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

type Interface interface {
	Debug(message interface{}, args ...interface{})
	Info(message string, args ...interface{})
	Warn(message string, args ...interface{})
	Error(message interface{}, args ...interface{})
	Fatal(message interface{}, args ...interface{})
}

type Logger struct {
	logger *zerolog.Logger
}

var _ Interface = (*Logger)(nil)

func New(level string) *Logger {
	var l zerolog.Level

	switch strings.ToLower(level) {
	case "error":
		l = zerolog.ErrorLevel
	case "warn":
		l = zerolog.WarnLevel
	case "info":
		l = zerolog.InfoLevel
	case "debug":
		l = zerolog.DebugLevel
	default:
		l = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(l)

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	return &Logger{
		logger: &logger,
	}
}

// Nop discards everything, used by tests.
func Nop() *Logger {
	logger := zerolog.Nop()

	return &Logger{
		logger: &logger,
	}
}

func (l *Logger) Debug(message interface{}, args ...interface{}) {
	l.msg(l.logger.Debug(), "debug", message, args...)
}

func (l *Logger) Info(message string, args ...interface{}) {
	l.log(l.logger.Info(), message, args...)
}

func (l *Logger) Warn(message string, args ...interface{}) {
	l.log(l.logger.Warn(), message, args...)
}

func (l *Logger) Error(message interface{}, args ...interface{}) {
	l.msg(l.logger.Error(), "error", message, args...)
}

func (l *Logger) Fatal(message interface{}, args ...interface{}) {
	l.msg(l.logger.Fatal(), "fatal", message, args...)

	os.Exit(1)
}

func (l *Logger) log(e *zerolog.Event, message string, args ...interface{}) {
	if len(args) == 0 {
		e.Msg(message)
	} else {
		e.Msgf(message, args...)
	}
}

func (l *Logger) msg(e *zerolog.Event, level string, message interface{}, args ...interface{}) {
	switch msg := message.(type) {
	case error:
		// Error(err, "Component - Method") carries err as a field and args as the message.
		if len(args) > 0 {
			if format, ok := args[0].(string); ok {
				l.log(e.Err(msg), format, args[1:]...)

				return
			}
		}
		e.Msg(msg.Error())
	case string:
		l.log(e, msg, args...)
	default:
		l.log(e, fmt.Sprintf("%s message %v has unknown type %v", level, message, msg), args...)
	}
}
