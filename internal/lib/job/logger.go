package job

import (
	"fmt"

	"github.com/rs/zerolog"
)

// asynqLogger routes Asynq's internal logs into zerolog.
type asynqLogger struct {
	logger *zerolog.Logger
}

func (l asynqLogger) Debug(args ...any) {
	l.log(l.logger.Debug(), args)
}

func (l asynqLogger) Info(args ...any) {
	l.log(l.logger.Info(), args)
}

func (l asynqLogger) Warn(args ...any) {
	l.log(l.logger.Warn(), args)
}

func (l asynqLogger) Error(args ...any) {
	l.log(l.logger.Error(), args)
}

func (l asynqLogger) Fatal(args ...any) {
	l.log(l.logger.Fatal(), args)
}

func (l asynqLogger) log(e *zerolog.Event, args []any) {
	e.Str("component", "asynq").Msg(fmt.Sprint(args...))
}
