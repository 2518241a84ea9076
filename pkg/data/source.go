package data

import (
	"sync/atomic"

	"go.uber.org/zap"

	"telcochurn/pkg/metrics"
)

// Source serves the current snapshot of a dataset file. Reload swaps in a
// fresh table; readers never block and keep whatever snapshot they loaded.
type Source struct {
	path  string
	log   *zap.Logger
	table atomic.Pointer[Table]
}

// NewSource loads path once and returns a Source serving it.
func NewSource(path string, log *zap.Logger) (*Source, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Source{path: path, log: log.With(zap.String("dataset", path))}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Source) Path() string { return s.path }

// Table returns the current snapshot. Callers must not modify it.
func (s *Source) Table() *Table { return s.table.Load() }

// Reload re-reads the file. On failure the previous table stays in place.
func (s *Source) Reload() error {
	t, err := Load(s.path)
	if err != nil {
		s.log.Error("dataset load failed", zap.Error(err))
		return err
	}

	s.table.Store(t)
	metrics.LoaderRows.WithLabelValues("kept").Add(float64(t.Len()))
	metrics.LoaderRows.WithLabelValues("dropped").Add(float64(t.Dropped))
	metrics.DatasetRows.Set(float64(t.Len()))

	s.log.Info("dataset loaded",
		zap.Int("rows", t.Len()),
		zap.Int("dropped", t.Dropped),
		zap.Int("invalid_values", t.Invalid),
		zap.String("encoding", t.Encoding),
	)
	return nil
}
