package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestHealthEndpoints(t *testing.T) {
	logger := zerolog.Nop()
	ready := false

	srv := NewServer(0, func(context.Context) error {
		if !ready {
			return errors.New("snapshot not loaded")
		}

		return nil
	}, &logger)

	h := srv.Handler()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		return rec
	}

	assert.Equal(t, http.StatusOK, get("/healthz").Code)

	rec := get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "snapshot not loaded")

	ready = true

	assert.Equal(t, http.StatusOK, get("/readyz").Code)
	assert.Equal(t, http.StatusOK, get("/metrics").Code)
}
