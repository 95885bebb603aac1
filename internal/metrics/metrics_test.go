package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	before := testutil.ToFloat64(Ticks)
	Ticks.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Ticks))

	MouthOpen.Set(0.25)
	assert.Equal(t, 0.25, testutil.ToFloat64(MouthOpen))

	FeedMessages.WithLabelValues("/mouth").Add(3)
	assert.GreaterOrEqual(t, testutil.ToFloat64(FeedMessages.WithLabelValues("/mouth")), 3.0)
}

func TestHandler_ExposesFaceMetrics(t *testing.T) {
	Ticks.Inc()
	InvariantFaults.Add(0)
	FrameDuration.Observe(0.004)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "cortexface_ticks_total")
	assert.Contains(t, string(body), "cortexface_frame_seconds_bucket")
	assert.Contains(t, string(body), "cortexface_invariant_faults_total")
}

func TestServe_DisabledWithoutAddr(t *testing.T) {
	assert.NoError(t, Serve(context.Background(), "", zerolog.Nop()))
}

func TestServe_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", zerolog.Nop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServe_MountsRoutes(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	logs := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "history")
	})
	go func() { done <- Serve(ctx, addr, zerolog.Nop(), Route{Pattern: "/logs", Handler: logs}) }()

	get := func(path string) (int, string) {
		resp, err := http.Get("http://" + addr + path)
		if err != nil {
			return 0, ""
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	require.Eventually(t, func() bool {
		code, _ := get("/logs")
		return code == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	_, body := get("/logs")
	assert.Equal(t, "history", body)
	code, body := get("/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "cortexface_ticks_total")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
