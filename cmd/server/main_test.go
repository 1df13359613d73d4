package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-grouper/internal/config"
	"duck-grouper/internal/domain"
	"duck-grouper/internal/grouping"
	"duck-grouper/internal/middleware"
	"duck-grouper/internal/service/records"
)

func TestCurlHostForListenAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		listenAddr string
		want       string
	}{
		{name: "port only", listenAddr: ":8080", want: "localhost:8080"},
		{name: "ipv4 host and port", listenAddr: "127.0.0.1:8080", want: "127.0.0.1:8080"},
		{name: "wildcard ipv4", listenAddr: "0.0.0.0:8080", want: "localhost:8080"},
		{name: "wildcard ipv6", listenAddr: "[::]:8080", want: "localhost:8080"},
		{name: "ipv6 loopback", listenAddr: "[::1]:8080", want: "[::1]:8080"},
		{name: "trim host and port", listenAddr: " localhost:9090 ", want: "localhost:9090"},
		{name: "trim port only", listenAddr: "  :7070  ", want: "localhost:7070"},
		{name: "empty falls back", listenAddr: "", want: "localhost:8080"},
		{name: "whitespace falls back", listenAddr: "   ", want: "localhost:8080"},
		{name: "malformed passes through", listenAddr: "localhost", want: "localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := curlHostForListenAddr(tt.listenAddr)

			assert.Equal(t, tt.want, got)
		})
	}
}

type stubService struct{}

func (stubService) Plan(_ context.Context, _ records.Request) (*records.Result, error) {
	return &records.Result{SQL: "SELECT 1"}, nil
}

func (stubService) Group(_ context.Context, _ records.Request) (*records.Result, error) {
	return &records.Result{}, nil
}

func (stubService) GroupBatch(_ context.Context, _ []records.Request) ([]*records.Result, error) {
	return nil, nil
}

func TestNewRouter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Default()
	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 1
	cfg.CORSAllowedOrigins = []string{"https://app.example.com"}
	h := newRouter(ctx, cfg, stubService{}, slog.New(slog.DiscardHandler))

	t.Run("health carries request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/v1/plan", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("rate limited", func(t *testing.T) {
		send := func() int {
			req := httptest.NewRequest(http.MethodPost, "/v1/plan", strings.NewReader(`{"table":"t","columns":["a"],"mode":"distinct"}`))
			req.RemoteAddr = "10.0.0.3:1234"
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			return rec.Code
		}
		require.Equal(t, http.StatusOK, send())
		assert.Equal(t, http.StatusTooManyRequests, send())
	})
}

type fileEngine struct{}

func (fileEngine) LookupTable(context.Context, string, string) (*grouping.StaticTable, error) {
	return grouping.NewStaticTable("t", "a"), nil
}

func (fileEngine) FileTable(_ context.Context, path string) (*grouping.StaticTable, error) {
	return grouping.NewStaticTable(path, "a"), nil
}

func (fileEngine) Run(context.Context, *grouping.Plan) ([]domain.Record, error) {
	return nil, nil
}

func TestServiceOptions(t *testing.T) {
	tests := []struct {
		name    string
		allow   bool
		path    string
		wantErr bool
	}{
		{name: "files off by default", path: "data/people.csv", wantErr: true},
		{name: "local file when allowed", allow: true, path: "data/people.csv"},
		{name: "url when allowed", allow: true, path: "https://example.com/people.csv", wantErr: true},
		{name: "glob when allowed", allow: true, path: "/var/data/*.parquet", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.AllowFileSources = tt.allow
			svc := records.NewService(fileEngine{}, slog.New(slog.DiscardHandler), 1, serviceOptions(cfg)...)

			_, err := svc.Plan(context.Background(), records.Request{Path: tt.path, Columns: []string{"a"}, Mode: domain.GroupModeDistinct})
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			var validation *domain.ValidationError
			require.ErrorAs(t, err, &validation)
		})
	}

	t.Run("batch size", func(t *testing.T) {
		cfg := config.Default()
		cfg.MaxBatchSize = 1
		svc := records.NewService(fileEngine{}, slog.New(slog.DiscardHandler), 1, serviceOptions(cfg)...)

		req := records.Request{Table: "t", Columns: []string{"a"}, Mode: domain.GroupModeDistinct}
		_, err := svc.GroupBatch(context.Background(), []records.Request{req, req})
		var validation *domain.ValidationError
		require.ErrorAs(t, err, &validation)
	})
}
