// Package rest exposes the cart over HTTP.
package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/gomarketplace/internal/cart"
	carterrors "github.com/abgdnv/gomarketplace/internal/errors"
	"github.com/abgdnv/gomarketplace/pkg/web"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CartResponse is the representation of the cart returned by every cart endpoint.
type CartResponse struct {
	Items   []cart.Item `json:"items"`
	Count   int         `json:"count"`
	Version uint64      `json:"version"`
	Synced  bool        `json:"synced"`
}

type Handler struct {
	decoder     *web.Decoder
	pinger      Pinger
	pingTimeout time.Duration
	logger      *slog.Logger
}

// NewHandler creates a handler. The store is taken from each request context;
// pingTimeout bounds the storage ping of the readiness probe.
func NewHandler(decoder *web.Decoder, pinger Pinger, pingTimeout time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		decoder:     decoder,
		pinger:      pinger,
		pingTimeout: pingTimeout,
		logger:      logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the cart and probe routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Post("/items", h.AddToCart)
		r.Post("/items/{id}/increment", h.Increment)
		r.Post("/items/{id}/decrement", h.Decrement)
		r.Post("/flush", h.Flush)
	})

	r.Get("/healthz", h.HealthCheck)
	r.Get("/readyz", h.ReadyCheck)
}

// store resolves the store in scope. It writes a 500 reply when there is none.
func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	store, err := cart.FromContext(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Cart accessed outside of its provider", "path", r.URL.Path, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	return store, true
}

// GetCart returns the current cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, toResponse(store))
}

// AddToCart adds the product in the body, merging it with an existing entry.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	var p cart.Product
	if !h.decoder.DecodeValid(w, r, h.logger, &p) {
		return
	}
	h.logger.DebugContext(r.Context(), "Received request to add product", "id", p.ID)
	h.mutate(w, r, store, "add", func(ctx context.Context) error {
		return store.AddToCart(ctx, p)
	})
}

// Increment raises the quantity of the item in the path.
func (h *Handler) Increment(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	h.mutate(w, r, store, "increment", func(ctx context.Context) error {
		return store.Increment(ctx, id)
	})
}

// Decrement lowers the quantity of the item in the path, removing it at zero.
func (h *Handler) Decrement(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	h.mutate(w, r, store, "decrement", func(ctx context.Context) error {
		return store.Decrement(ctx, id)
	})
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, store *cart.Store, op string, fn func(ctx context.Context) error) {
	if err := fn(r.Context()); err != nil {
		status, msg := statusFor(err)
		h.logger.WarnContext(r.Context(), "Cart mutation rejected", "op", op, "error", err)
		web.RespondError(w, h.logger, status, msg)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, toResponse(store))
}

// Flush waits until the cart is persisted. It replies 503 when storage could not be written.
func (h *Handler) Flush(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := store.Flush(r.Context()); err != nil {
		status, msg := statusFor(err)
		h.logger.WarnContext(r.Context(), "Cart flush failed", "error", err)
		web.RespondError(w, h.logger, status, msg)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, toResponse(store))
}

// HealthCheck reports that the process is alive.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	web.RespondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyCheck reports 200 once the cart is rehydrated and storage answers a ping.
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	g, gCtx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		select {
		case <-store.Ready():
			return nil
		default:
			return errors.New("cart is rehydrating")
		}
	})
	g.Go(func() error {
		ctx, cancel := context.WithTimeout(gCtx, h.pingTimeout)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			return fmt.Errorf("storage unreachable: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		web.RespondJSON(w, h.logger, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "reason": err.Error()})
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ready"})
}

func toResponse(store *cart.Store) CartResponse {
	snap := store.Snapshot()
	count := 0
	for _, it := range snap.Items {
		count += it.Quantity
	}
	status := store.SyncStatus()
	return CartResponse{
		Items:   snap.Items,
		Count:   count,
		Version: snap.Version,
		Synced:  status.PersistedVersion >= snap.Version,
	}
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, carterrors.ErrInvalidProduct):
		return http.StatusBadRequest, "invalid product"
	case errors.Is(err, carterrors.ErrUnsynced):
		return http.StatusServiceUnavailable, "cart could not be persisted, retry later"
	case errors.Is(err, carterrors.ErrStoreClosed):
		return http.StatusServiceUnavailable, "cart is shutting down"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "the request timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
