package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/ParcelBox/config"
	"github.com/BearBump/ParcelBox/internal/integrations/provider"
	"github.com/BearBump/ParcelBox/internal/integrations/provider/fake"
	"github.com/BearBump/ParcelBox/internal/services/audit"
	"github.com/BearBump/ParcelBox/internal/storage/pgattempts"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

type backendRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (b *backendRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.paths = append(b.paths, r.URL.Path)
	b.mu.Unlock()
	_, _ = w.Write([]byte(`{"status":"success"}`))
}

func (b *backendRecorder) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, p := range b.paths {
		if p == path {
			n++
		}
	}
	return n
}

func testFactories() appFactories {
	return appFactories{
		newProvider:   func(cfg *config.Config) provider.Client { return fake.New() },
		newPublisher:  func(cfg *config.Config) (audit.Publisher, func()) { return nil, func() {} },
		newAttemptLog: func(cfg *config.Config) (*pgattempts.Storage, func()) { return nil, func() {} },
	}
}

func TestRunTrackApp_ServesAndRegistersPushToken(t *testing.T) {
	dir := t.TempDir()
	sw := filepath.Join(dir, "swagger.json")
	require.NoError(t, os.WriteFile(sw, []byte(`{"swagger":"2.0"}`), 0o600))

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	be := &backendRecorder{}
	beSrv := httptest.NewServer(be)
	t.Cleanup(beSrv.Close)

	cfg := &config.Config{
		Redis:    config.RedisConfig{Host: mr.Host(), Port: port},
		Provider: config.ProviderConfig{Mode: "fake"},
		Backend:  config.BackendConfig{BaseURL: beSrv.URL},
		ParcelBox: config.ParcelBoxConfig{
			HTTPAddr:          "127.0.0.1:0",
			PushToken:         "ExponentPushToken[test]",
			SettleDelayMillis: 1,
		},
	}
	require.NoError(t, config.Validate(cfg))

	app := buildTrackApp(cfg, testFactories())
	t.Cleanup(app.Close)

	addrCh := make(chan string, 1)
	opts := app.opts
	opts.swaggerPath = sw
	opts.onListen = func(addr string) { addrCh <- addr }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- runTrackApp(ctx, opts, app.api, app.push) }()

	var base string
	select {
	case addr := <-addrCh:
		base = "http://" + addr
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}

	require.Equal(t, 1, be.count("/register_token"))
	require.True(t, mr.Exists("parcelbox:token_registered"))

	resp, err := http.Get(base + "/swagger.json")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "\"swagger\"")

	resp, err = http.Post(base+"/v1/trackings", "application/json", strings.NewReader(`{"tracking_number":"1Z999AA10123456784"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, 1, be.count("/register_tracking"))

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Contains(t, string(body), "parcelbox_workflow_attempts_total")

	cancel()
	select {
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting server to stop")
	case err := <-runErr:
		require.ErrorIs(t, err, context.Canceled)
	}

	// Второй запуск токен не переотправляет.
	sent, err := app.push.EnsureTokenRegistered(context.Background(), "ExponentPushToken[test]")
	require.NoError(t, err)
	require.False(t, sent)
	require.Equal(t, 1, be.count("/register_token"))
}

func TestRunTrackApp_SwaggerMissing(t *testing.T) {
	err := runTrackApp(context.Background(), trackAppOpts{swaggerPath: filepath.Join(t.TempDir(), "nope.json")}, nil, nil)
	require.Error(t, err)
}
