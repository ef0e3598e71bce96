package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	carterrors "github.com/abgdnv/gomarketplace/internal/errors"
	"go.opentelemetry.io/otel/metric"
)

// DefaultKey is the storage key the cart is persisted under.
const DefaultKey = "@GoMarketplace:products"

const (
	defaultRehydrateTimeout = 5 * time.Second
	defaultWriteTimeout     = 5 * time.Second
	defaultRetryAttempts    = 5
	defaultInitialBackoff   = 100 * time.Millisecond
	defaultMaxElapsed       = 30 * time.Second
)

// Storage is the key-value backend the cart is mirrored to.
type Storage interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
}

// RetryPolicy controls how failed writes are retried.
type RetryPolicy struct {
	MaxAttempts    uint
	InitialBackoff time.Duration
	MaxElapsed     time.Duration
}

// Options has the settings of a Store. Zero values fall back to defaults.
type Options struct {
	Key              string
	RehydrateTimeout time.Duration
	WriteTimeout     time.Duration
	Retry            RetryPolicy
	Logger           *slog.Logger
	Meter            metric.Meter
}

func (o Options) withDefaults() Options {
	if o.Key == "" {
		o.Key = DefaultKey
	}
	if o.RehydrateTimeout <= 0 {
		o.RehydrateTimeout = defaultRehydrateTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.Retry.MaxAttempts == 0 {
		o.Retry.MaxAttempts = defaultRetryAttempts
	}
	if o.Retry.InitialBackoff <= 0 {
		o.Retry.InitialBackoff = defaultInitialBackoff
	}
	if o.Retry.MaxElapsed <= 0 {
		o.Retry.MaxElapsed = defaultMaxElapsed
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// SyncStatus describes how far the persisted copy lags behind the in-memory cart.
type SyncStatus struct {
	Version          uint64
	PersistedVersion uint64
	Synced           bool
	LastError        error
	LastWrite        time.Time
}

// Store owns the authoritative cart collection and mirrors it to Storage.
// It is safe for concurrent use.
type Store struct {
	storage Storage
	opts    Options
	logger  *slog.Logger
	metrics *storeMetrics

	baseCtx context.Context
	cancel  context.CancelFunc

	mu         sync.Mutex
	items      []Item
	version    uint64
	closed     bool
	rehydrated bool
	subs       map[int]chan Snapshot
	nextSub    int

	wsMu sync.Mutex
	ws   writerState

	ready     chan struct{}
	dirty     chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// writerState is written by the writer goroutine under wsMu.
type writerState struct {
	persisted      uint64
	attempts       uint64
	lastAttemptVer uint64
	lastErr        error
	lastWrite      time.Time
	changed        chan struct{}
}

// NewStore creates a store backed by storage and starts its one-time rehydration
// and its background writer.
func NewStore(storage Storage, opts Options) *Store {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		storage: storage,
		opts:    opts,
		logger:  opts.Logger.With("component", "cart"),
		metrics: newStoreMetrics(opts.Meter, opts.Logger),
		baseCtx: ctx,
		cancel:  cancel,
		items:   []Item{},
		subs:    make(map[int]chan Snapshot),
		ws:      writerState{changed: make(chan struct{})},
		ready:   make(chan struct{}),
		dirty:   make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.rehydrate()
	go s.runWriter()
	return s
}

// rehydrate loads the persisted cart once. Any failure leaves the cart empty.
func (s *Store) rehydrate() {
	defer close(s.ready)

	ctx, cancel := context.WithTimeout(s.baseCtx, s.opts.RehydrateTimeout)
	defer cancel()

	raw, err := s.storage.Get(ctx, s.opts.Key)
	if err != nil {
		if errors.Is(err, carterrors.ErrKeyNotFound) {
			s.logger.Debug("No persisted cart found, starting empty", "key", s.opts.Key)
			return
		}
		s.logger.Warn("Failed to read persisted cart, starting empty", "key", s.opts.Key, "error", err)
		s.metrics.rehydrateFailures.Add(ctx, 1)
		return
	}
	items, err := Decode(raw)
	if err == nil {
		err = validateItems(items)
	}
	if err != nil {
		s.logger.Warn("Persisted cart is corrupted, starting empty", "key", s.opts.Key, "error", err)
		s.metrics.rehydrateFailures.Add(ctx, 1)
		return
	}

	s.mu.Lock()
	s.items = items
	s.rehydrated = true
	s.publishLocked()
	s.mu.Unlock()
	s.logger.Info("Cart rehydrated", "key", s.opts.Key, "items", len(items))
}

// Ready is closed once rehydration has finished, whatever its outcome.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Rehydrated reports whether the current state was loaded from storage.
func (s *Store) Rehydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rehydrated
}

// AddToCart adds p to the cart. An entry with the same id takes p's fields and
// has its quantity increased by one; otherwise p is appended with quantity one.
// Returns ErrInvalidProduct, leaving the cart untouched, when p has no id or a
// negative or non-finite price.
func (s *Store) AddToCart(ctx context.Context, p Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	return s.mutate(ctx, "add", func(items []Item) []Item {
		return addItem(items, p)
	})
}

// Increment raises the quantity of the entry with the given id by one.
// Unknown ids leave the cart unchanged.
func (s *Store) Increment(ctx context.Context, id string) error {
	return s.mutate(ctx, "increment", func(items []Item) []Item {
		return incrementItem(items, id)
	})
}

// Decrement lowers the quantity of the entry with the given id and removes it
// once it reaches zero. Unknown ids leave the cart unchanged.
func (s *Store) Decrement(ctx context.Context, id string) error {
	return s.mutate(ctx, "decrement", func(items []Item) []Item {
		return decrementItem(items, id)
	})
}

// mutate waits for rehydration, commits fn's result and schedules a write.
// Only lifecycle failures are returned.
func (s *Store) mutate(ctx context.Context, op string, fn func([]Item) []Item) error {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return carterrors.ErrStoreClosed
	}
	s.items = fn(s.items)
	s.version++
	s.publishLocked()
	s.mu.Unlock()

	s.metrics.mutation(ctx, op)
	s.signal()
	return nil
}

// Products returns a copy of the current collection.
func (s *Store) Products() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// Snapshot returns a copy of the current collection with its version.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Items: cloneItems(s.items), Version: s.version}
}

// Len returns the number of distinct items in the cart.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Version returns the number of mutations committed so far.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Subscribe returns a channel receiving the latest snapshot after every commit.
// Slow receivers only see the most recent snapshot. The channel is closed by the
// returned cancel func or when the store is closed.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// publishLocked hands the current state to every subscriber. Callers hold s.mu,
// which makes the drain-then-send sequence non-blocking.
func (s *Store) publishLocked() {
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- Snapshot{Items: cloneItems(s.items), Version: s.version}
	}
}

// Close stops accepting mutations, flushes pending state and stops the writer.
func (s *Store) Close(ctx context.Context) error {
	var flushErr error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		for id, ch := range s.subs {
			delete(s.subs, id)
			close(ch)
		}
		s.mu.Unlock()

		flushErr = s.Flush(ctx)
		close(s.stop)

		select {
		case <-s.done:
		case <-ctx.Done():
			s.cancel()
			<-s.done
			if flushErr == nil {
				flushErr = ctx.Err()
			}
		}
		s.cancel()
	})
	return flushErr
}
