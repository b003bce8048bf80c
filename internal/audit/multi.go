package audit

import (
	"context"
	"errors"
)

// MultiStorage fans a batch out to every sink. A failing sink does not stop the others.
type MultiStorage []StorageInterface

func (m MultiStorage) WriteBatch(ctx context.Context, events []Event) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteBatch(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogStorage writes batches nowhere but the process log. Used when no durable sink is configured.
type LogStorage struct {
	Logf func(format string, args ...any)
}

func (s LogStorage) WriteBatch(_ context.Context, events []Event) error {
	if s.Logf == nil {
		return nil
	}
	for _, e := range events {
		s.Logf("audit seq=%d kind=%s agent=%s status=%s", e.Seq, e.Kind, e.Agent, e.Status)
	}
	return nil
}
