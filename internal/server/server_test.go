package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yamdb/apiserver/config"
	"github.com/yamdb/apiserver/internal/auth"
	"github.com/yamdb/apiserver/internal/mail"
	"github.com/yamdb/apiserver/internal/store"
	"github.com/yamdb/apiserver/internal/token"
)

func newTestRouter(t *testing.T, cfg config.Config, limit func(http.Handler) http.Handler) http.Handler {
	t.Helper()
	codec, err := token.New("router-secret", "HS256", time.Hour)
	require.NoError(t, err)

	svc := NewServices(nil, mail.NewLogSender(), codec, "noreply@yamdb.local")
	resolver := auth.NewResolver(codec, store.NewUserRepository(nil), "Bearer")
	return NewRouter(cfg, svc, resolver, limit)
}

func serve(router http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Healthz(t *testing.T) {
	rec := serve(newTestRouter(t, config.Config{}, nil), http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(t, config.Config{}, nil)
	serve(router, http.MethodGet, "/healthz", nil)

	rec := serve(router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouter_UnknownRoute(t *testing.T) {
	rec := serve(newTestRouter(t, config.Config{}, nil), http.MethodGet, "/api/v1/nothing-here", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"not found"}`, rec.Body.String())
}

func TestRouter_BadTokenRejectedBeforeRouting(t *testing.T) {
	header := http.Header{"Authorization": {"Bearer not-a-jwt"}}
	rec := serve(newTestRouter(t, config.Config{}, nil), http.MethodGet, "/api/v1/titles/", header)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_CORS(t *testing.T) {
	cfg := config.Config{CORS: config.CORSConfig{AllowedOrigins: []string{"https://yamdb.example"}}}
	header := http.Header{
		"Origin":                        {"https://yamdb.example"},
		"Access-Control-Request-Method": {http.MethodPatch},
	}
	rec := serve(newTestRouter(t, cfg, nil), http.MethodOptions, "/api/v1/titles/", header)

	assert.Equal(t, "https://yamdb.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
}

func TestRouter_LimitAppliesToAuthOnly(t *testing.T) {
	hits := 0
	limit := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	router := newTestRouter(t, config.Config{}, limit)

	rec := serve(router, http.MethodPost, "/api/v1/auth/signup", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 1, hits)

	serve(router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, 1, hits)
}

func TestServer_ShutdownRunsClosersInReverse(t *testing.T) {
	var order []string
	s := &Server{
		httpServer: &http.Server{},
		closers: []func() error{
			func() error { order = append(order, "mail"); return nil },
			func() error { order = append(order, "limiter"); return nil },
		},
	}

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, []string{"limiter", "mail"}, order)
}
