package cart

import (
	"context"
	"fmt"
	"time"

	carterrors "github.com/abgdnv/gomarketplace/internal/errors"
	"github.com/cenkalti/backoff/v5"
)

// signal schedules a write. Pending signals coalesce into one.
func (s *Store) signal() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// runWriter is the only goroutine writing to storage, so writes are strictly ordered.
func (s *Store) runWriter() {
	defer close(s.done)

	select {
	case <-s.ready:
	case <-s.stop:
		return
	}

	for {
		select {
		case <-s.dirty:
			s.persist()
		case <-s.stop:
			select {
			case <-s.dirty:
				s.persist()
			default:
			}
			return
		}
	}
}

// persist writes the freshest committed state, retrying with exponential backoff.
func (s *Store) persist() {
	s.mu.Lock()
	version := s.version
	items := cloneItems(s.items)
	s.mu.Unlock()

	s.wsMu.Lock()
	persisted := s.ws.persisted
	s.wsMu.Unlock()
	if version <= persisted {
		return
	}

	payload, err := Encode(items)
	if err != nil {
		s.finishAttempt(version, err)
		return
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.Retry.InitialBackoff

	_, err = backoff.Retry(s.baseCtx, func() (struct{}, error) {
		ctx, cancel := context.WithTimeout(s.baseCtx, s.opts.WriteTimeout)
		defer cancel()
		return struct{}{}, s.storage.Set(ctx, s.opts.Key, payload)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.opts.Retry.MaxAttempts),
		backoff.WithMaxElapsedTime(s.opts.Retry.MaxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Debug("Cart write failed, retrying", "version", version, "retry_in", next, "error", err)
		}),
	)
	s.finishAttempt(version, err)
}

// finishAttempt records the outcome of a write and wakes up Flush callers.
func (s *Store) finishAttempt(version uint64, err error) {
	s.wsMu.Lock()
	s.ws.attempts++
	s.ws.lastAttemptVer = version
	s.ws.lastErr = err
	if err == nil {
		s.ws.persisted = version
		s.ws.lastWrite = time.Now()
	}
	close(s.ws.changed)
	s.ws.changed = make(chan struct{})
	s.wsMu.Unlock()

	if err != nil {
		s.logger.Error("Cart write abandoned, persisted copy is stale", "key", s.opts.Key, "version", version, "error", err)
		s.metrics.writeFailures.Add(context.Background(), 1)
		return
	}
	s.metrics.writes.Add(context.Background(), 1)
}

// Flush blocks until every mutation committed before the call has been persisted.
// It returns ErrUnsynced wrapping the storage error if the writer gave up.
func (s *Store) Flush(ctx context.Context) error {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	target := s.Version()
	s.wsMu.Lock()
	startAttempts := s.ws.attempts
	s.wsMu.Unlock()
	s.signal()

	for {
		s.wsMu.Lock()
		st := s.ws
		s.wsMu.Unlock()

		if st.persisted >= target {
			return nil
		}
		if st.attempts > startAttempts && st.lastAttemptVer >= target && st.lastErr != nil {
			return fmt.Errorf("%w: %w", carterrors.ErrUnsynced, st.lastErr)
		}

		select {
		case <-st.changed:
		case <-s.done:
			s.wsMu.Lock()
			st = s.ws
			s.wsMu.Unlock()
			if st.persisted >= target {
				return nil
			}
			if st.lastErr != nil {
				return fmt.Errorf("%w: %w", carterrors.ErrUnsynced, st.lastErr)
			}
			return fmt.Errorf("%w: %w", carterrors.ErrUnsynced, carterrors.ErrStoreClosed)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SyncStatus reports whether the persisted copy reflects the latest commit.
func (s *Store) SyncStatus() SyncStatus {
	version := s.Version()

	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	return SyncStatus{
		Version:          version,
		PersistedVersion: s.ws.persisted,
		Synced:           s.ws.persisted >= version,
		LastError:        s.ws.lastErr,
		LastWrite:        s.ws.lastWrite,
	}
}
