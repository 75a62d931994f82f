// Package store defines persistence for composed event records.
package store

import (
	"context"

	"github.com/togetherapp/relay/internal/model"
)

// Saver persists freshly composed event records. The composer treats any
// failure here as a persistence error and aborts the compose call.
type Saver interface {
	SaveRecord(ctx context.Context, rec *model.EventRecord) error
	Close() error
}

// NoopSaver discards records (used when composing without a configured store).
type NoopSaver struct{}

func (NoopSaver) SaveRecord(ctx context.Context, rec *model.EventRecord) error { return nil }

func (NoopSaver) Close() error { return nil }
