package storage

import (
	"fmt"
	"group-chat/errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Open opens the badger store at path, routing badger's own logs through slog.
func Open(path string, log *slog.Logger) (*badger.DB, error) {
	options := badger.DefaultOptions(path).
		WithLogger(badgerLogger{log: log}).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return db, nil
}

type badgerLogger struct {
	log *slog.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.log.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.log.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.log.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.log.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errors.ErrNotFound) || errors.Is(err, errors.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
}
