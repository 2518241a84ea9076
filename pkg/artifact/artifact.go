// Package artifact stores serialized churn pipelines.
package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"telcochurn/pkg/pipeline"
)

// DefaultName is the artifact name used when none is configured.
const DefaultName = "churn_model.gob"

// ErrNotFound is returned when no artifact exists under a name.
var ErrNotFound = errors.New("artifact: not found")

// Store reads and writes artifact bytes by name.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, b []byte) error
	// Location describes where name lives, for logs.
	Location(name string) string
}

// Save encodes p and writes it to the store.
func Save(ctx context.Context, s Store, name string, p *pipeline.Pipeline) error {
	var buf bytes.Buffer
	if err := p.Encode(&buf); err != nil {
		return err
	}
	if err := s.Put(ctx, name, buf.Bytes()); err != nil {
		return fmt.Errorf("artifact: write %s: %w", s.Location(name), err)
	}
	return nil
}

// Load fetches and decodes a pipeline.
func Load(ctx context.Context, s Store, name string) (*pipeline.Pipeline, error) {
	b, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	p, err := pipeline.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("artifact: %s: %w", s.Location(name), err)
	}
	return p, nil
}

// Pinger is implemented by stores backed by a network service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks connectivity for stores that support it. Other stores are
// always reachable.
func Ping(ctx context.Context, s Store) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the store's connections, if it holds any.
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
