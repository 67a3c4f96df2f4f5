package app

import (
	"io"
	"log/slog"
	"mangafeed/internal/config"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.New()
	cfg.App.Series = nil

	_, err := New(cfg)

	assert.Error(t, err)
}

type closeCounter struct{ closed int }

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestNew_ClosesLogFilesWhenDatabaseIsUnreachable(t *testing.T) {
	closer := &closeCounter{}
	orig := newLogger
	newLogger = func(config.LoggerConfig) (*slog.Logger, io.Closer, error) {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), closer, nil
	}
	t.Cleanup(func() { newLogger = orig })
	cfg := config.New()
	cfg.Database.Enabled = true
	cfg.Database.Host = "127.0.0.1"
	cfg.Database.Port = freePort(t)
	cfg.Database.Username = "u"
	cfg.Database.DBName = "d"

	_, err := New(cfg)

	require.Error(t, err)
	assert.Equal(t, 1, closer.closed)
}

func TestNew_WithoutDatabase(t *testing.T) {
	cfg := config.New()
	cfg.Logger.Level = "error"

	a, err := New(cfg)

	require.NoError(t, err)
	assert.Nil(t, a.fetchLog)
	assert.Nil(t, a.worker)
	assert.Nil(t, a.recorder())
	assert.Equal(t, "127.0.0.1:8080", a.server.Addr)
}

func TestNew_BackgroundWorker(t *testing.T) {
	cfg := config.New()
	cfg.Logger.Level = "error"
	cfg.App.ProbeInterval = "1h"

	a, err := New(cfg)

	require.NoError(t, err)
	require.NotNil(t, a.worker)
	assert.Equal(t, time.Hour, a.worker.Interval())
}

func TestApp_RunServesUntilSignal(t *testing.T) {
	cfg := config.New()
	cfg.Logger.Level = "error"
	cfg.Server.Port = freePort(t)
	a, err := New(cfg)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Run() }()

	url := "http://" + cfg.Server.Address() + "/api/health"
	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(url)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	a.stopChan <- syscall.SIGTERM
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after SIGTERM")
	}
}
