package feed

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/okian/tally/pkg/logger"
)

// watermillLogger adapts logger.Logger to watermill.LoggerAdapter.
type watermillLogger struct {
	log    logger.Logger
	fields watermill.LogFields
}

func newWatermillLogger(l logger.Logger) watermill.LoggerAdapter {
	return &watermillLogger{log: l}
}

func (w *watermillLogger) toFields(extra watermill.LogFields) []logger.Field {
	all := w.fields.Add(extra)
	out := make([]logger.Field, 0, len(all))
	for k, v := range all {
		out = append(out, logger.Any(k, v))
	}
	return out
}

func (w *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.log.Error(context.Background(), msg, append(w.toFields(fields), logger.Error(err))...)
}

func (w *watermillLogger) Info(msg string, fields watermill.LogFields) {
	w.log.Info(context.Background(), msg, w.toFields(fields)...)
}

func (w *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.log.Debug(context.Background(), msg, w.toFields(fields)...)
}

func (w *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.log.Debug(context.Background(), msg, w.toFields(fields)...)
}

func (w *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{log: w.log, fields: w.fields.Add(fields)}
}
