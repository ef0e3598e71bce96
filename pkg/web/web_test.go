package web

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type payload struct {
	ID    string  `json:"id" validate:"required"`
	Price float64 `json:"price" validate:"min=0"`
}

func TestDecoder_DecodeValid(t *testing.T) {
	testCases := []struct {
		name           string
		body           string
		expectOK       bool
		expectedStatus int
		expectedDetail string
	}{
		{name: "valid", body: `{"id":"a","price":1}`, expectOK: true},
		{name: "missing id", body: `{"price":1}`, expectedStatus: http.StatusBadRequest, expectedDetail: "id"},
		{name: "negative price", body: `{"id":"a","price":-1}`, expectedStatus: http.StatusBadRequest, expectedDetail: "price"},
		{name: "malformed", body: `{"id":`, expectedStatus: http.StatusBadRequest},
		{name: "empty", body: ``, expectedStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"id":"a","colour":"red"}`, expectedStatus: http.StatusBadRequest},
		{name: "too large", body: `{"id":"` + strings.Repeat("a", 200) + `"}`, expectedStatus: http.StatusRequestEntityTooLarge},
	}

	d := NewDecoder(128)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))

			var dst payload
			ok := d.DecodeValid(rec, req, discard, &dst)

			assert.Equal(t, tc.expectOK, ok)
			if tc.expectOK {
				return
			}
			assert.Equal(t, tc.expectedStatus, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			if tc.expectedDetail != "" {
				assert.Contains(t, resp.Details, tc.expectedDetail)
			}
		})
	}
}

func TestRequestIDInjector(t *testing.T) {
	var seen string
	h := RequestIDInjector(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetReqID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	})

	t.Run("propagated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc")
		h.ServeHTTP(rec, req)
		assert.Equal(t, "abc", seen)
		assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
	})
}

func TestRecoverer(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Recoverer(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "Panic recovered")
	assert.Contains(t, buf.String(), "boom")
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Request completed", line["msg"])
	assert.Equal(t, "/api/v1/cart", line["path"])
	assert.EqualValues(t, http.StatusTeapot, line["status"])
}
