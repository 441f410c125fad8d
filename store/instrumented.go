package store

import (
	"context"
	"time"

	oceanpost "github.com/driftlabs/oceanpost"
	"github.com/driftlabs/oceanpost/telemetry"
)

// Instrumented wraps a Store with metrics recording.
type Instrumented struct {
	store Store
	name  string
}

// NewInstrumented creates a new instrumented store wrapper.
func NewInstrumented(s Store, name string) *Instrumented {
	return &Instrumented{store: s, name: name}
}

func (is *Instrumented) Upload(ctx context.Context, data []byte) (oceanpost.ContentHash, error) {
	start := time.Now()
	hash, err := is.store.Upload(ctx, data)
	telemetry.RecordStoreOp(ctx, is.name, "upload", outcomeFromError(err), time.Since(start), int64(len(data)))
	return hash, err
}

func (is *Instrumented) Fetch(ctx context.Context, hash oceanpost.ContentHash) ([]byte, error) {
	start := time.Now()
	data, err := is.store.Fetch(ctx, hash)
	telemetry.RecordStoreOp(ctx, is.name, "fetch", outcomeFromError(err), time.Since(start), int64(len(data)))
	return data, err
}

func outcomeFromError(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

var _ Store = (*Instrumented)(nil)
