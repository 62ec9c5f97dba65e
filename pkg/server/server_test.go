package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeUntilCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	srv := New(ln.Addr().String(), handler, Options{
		ShutdownTimeout: time.Second,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, ln) }()

	require.Eventually(t, srv.Ready, time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.False(t, srv.Ready())
}

func TestNewAppliesDefaults(t *testing.T) {
	srv := New(":0", http.NotFoundHandler(), Options{})
	assert.Equal(t, ":0", srv.Addr())
	assert.Equal(t, DefaultShutdownTimeout, srv.shutdownTimeout)
	assert.Equal(t, DefaultReadTimeout, srv.httpServer.ReadTimeout)
}

func TestServeReportsListenErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := New(ln.Addr().String(), http.NotFoundHandler(), Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	assert.Error(t, srv.Serve(context.Background()))
}
