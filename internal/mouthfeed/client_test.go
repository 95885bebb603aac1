package mouthfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexface/internal/bus"
)

type recorder struct {
	mu     sync.Mutex
	values []float64
}

func (r *recorder) handle(e bus.Event) {
	v, ok := e.Float("value")
	if !ok {
		return
	}
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
}

func (r *recorder) get() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.values...)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestParseMouth(t *testing.T) {
	cases := []struct {
		raw   string
		topic string
		value float64
	}{
		{`0.42`, "", 0.42},
		{` 1 `, "", 1},
		{`{"topic":"mouth","data":0.5}`, "mouth", 0.5},
		{`{"op":"publish","topic":"/mouth","msg":{"data":0.25}}`, "/mouth", 0.25},
		{`{"data":-3}`, "", -3},
	}
	for _, tc := range cases {
		topic, v, err := parseMouth([]byte(tc.raw))
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.topic, topic, tc.raw)
		assert.Equal(t, tc.value, v, tc.raw)
	}

	for _, raw := range []string{`"open"`, `{"topic":"mouth"}`, `{"op":"status","msg":{"data":1}}`, `{`} {
		_, _, err := parseMouth([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestSameTopic(t *testing.T) {
	assert.True(t, sameTopic("/mouth", "mouth"))
	assert.True(t, sameTopic("mouth", "/mouth"))
	assert.False(t, sameTopic("/eyes", "/mouth"))
}

func TestClient_SubscribesAndPublishesInOrder(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan subscribeOp, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var op subscribeOp
		if err := conn.ReadJSON(&op); err != nil {
			return
		}
		subscribed <- op

		for _, msg := range []string{
			`{"op":"publish","topic":"/mouth","msg":{"data":0.2}}`,
			`{"topic":"/eyes","data":0.7}`,
			`{"topic":"mouth","data":0.5}`,
			`not json`,
			`0.9`,
		} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// hold the connection until the client goes away
		conn.ReadMessage()
	}))
	defer srv.Close()

	b := bus.NewEventBus()
	rec := &recorder{}
	b.Subscribe(bus.EventTypeMouthOpen, rec.handle)

	c := New(Config{URL: wsURL(srv), Topic: "/mouth", MessageType: "std_msgs/Float32"}, b, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case op := <-subscribed:
		assert.Equal(t, subscribeOp{Op: "subscribe", Topic: "/mouth", Type: "std_msgs/Float32"}, op)
	case <-time.After(5 * time.Second):
		t.Fatal("no subscribe message")
	}

	require.Eventually(t, func() bool { return len(rec.get()) == 3 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []float64{0.2, 0.5, 0.9}, rec.get())
	assert.True(t, c.IsConnected())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, c.IsConnected())
}

func TestClient_Reconnects(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var sessions atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := sessions.Add(1)

		var op subscribeOp
		if err := conn.ReadJSON(&op); err != nil {
			return
		}
		if n == 1 {
			return // drop the first session straight away
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`0.6`))
		conn.ReadMessage()
	}))
	defer srv.Close()

	b := bus.NewEventBus()
	rec := &recorder{}
	b.Subscribe(bus.EventTypeMouthOpen, rec.handle)

	var disconnects atomic.Int32
	b.Subscribe(bus.EventTypeFeedDisconnected, func(bus.Event) { disconnects.Add(1) })

	c := New(Config{
		URL:               wsURL(srv),
		Topic:             "mouth",
		ReconnectDelay:    10 * time.Millisecond,
		MaxReconnectDelay: 20 * time.Millisecond,
	}, b, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.Eventually(t, func() bool { return len(rec.get()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []float64{0.6}, rec.get())
	assert.GreaterOrEqual(t, sessions.Load(), int32(2))
	assert.Eventually(t, func() bool { return disconnects.Load() >= 1 }, time.Second, 10*time.Millisecond)
}

func TestClient_StopsWhileServerUnavailable(t *testing.T) {
	c := New(Config{URL: "ws://127.0.0.1:1/none", Topic: "mouth", ReconnectDelay: time.Hour, MaxReconnectDelay: time.Hour}, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNew_DefaultsDelays(t *testing.T) {
	c := New(Config{URL: "ws://x"}, nil, zerolog.Nop())
	assert.Equal(t, 3*time.Second, c.cfg.ReconnectDelay)
	assert.Equal(t, 60*time.Second, c.cfg.MaxReconnectDelay)
}

func TestClient_PublishesFeedErrors(t *testing.T) {
	b := bus.NewEventBus()
	errs := make(chan bus.Event, 8)
	b.Subscribe(bus.EventTypeFeedError, func(e bus.Event) {
		select {
		case errs <- e:
		default:
		}
	})

	c := New(Config{
		URL:               "ws://127.0.0.1:1/none",
		Topic:             "mouth",
		ReconnectDelay:    5 * time.Millisecond,
		MaxReconnectDelay: 10 * time.Millisecond,
	}, b, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	for want := 1; want <= 2; want++ {
		select {
		case e := <-errs:
			assert.Equal(t, "ws://127.0.0.1:1/none", e.Data["url"])
			assert.NotEmpty(t, e.Data["error"])
			failures, ok := e.Float("failures")
			require.True(t, ok)
			assert.GreaterOrEqual(t, failures, 1.0)
		case <-time.After(5 * time.Second):
			t.Fatalf("no feed error event %d", want)
		}
	}
	assert.False(t, c.IsConnected())
}
