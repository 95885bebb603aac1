// Package mouthfeed subscribes to an external mouth-opening signal over a
// rosbridge-compatible WebSocket and republishes each value on the event bus.
package mouthfeed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexface/internal/bus"
	"github.com/normanking/cortexface/internal/metrics"
)

// Config configures a Client.
type Config struct {
	URL               string
	Topic             string
	MessageType       string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
}

// subscribeOp is the rosbridge subscription request.
type subscribeOp struct {
	Op    string `json:"op"`
	Topic string `json:"topic"`
	Type  string `json:"type,omitempty"`
}

// envelope covers both the rosbridge publish form
// {"op":"publish","topic":"/mouth","msg":{"data":0.4}} and the flat form
// {"topic":"mouth","data":0.4}.
type envelope struct {
	Op    string   `json:"op"`
	Topic string   `json:"topic"`
	Data  *float64 `json:"data"`
	Msg   *struct {
		Data *float64 `json:"data"`
	} `json:"msg"`
}

// Client keeps a subscription to the mouth topic alive.
type Client struct {
	cfg    Config
	bus    *bus.EventBus
	logger zerolog.Logger
	dialer *websocket.Dialer

	mu        sync.RWMutex
	connected bool
}

// New creates a Client. Zero reconnect delays default to 3s and 60s.
func New(cfg Config, b *bus.EventBus, logger zerolog.Logger) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 3 * time.Second
	}
	if cfg.MaxReconnectDelay < cfg.ReconnectDelay {
		cfg.MaxReconnectDelay = max(60*time.Second, cfg.ReconnectDelay)
	}
	return &Client{
		cfg:    cfg,
		bus:    b,
		logger: logger,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Run connects and reads until ctx ends, reconnecting with exponential
// backoff. It returns nil once ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.cfg.ReconnectDelay
	failures := 0

	for {
		err := c.session(ctx)
		c.setConnected(false)
		if ctx.Err() != nil {
			return nil
		}

		if err == nil {
			// the session was up and dropped; start over from the short delay
			backoff = c.cfg.ReconnectDelay
			failures = 0
		} else {
			failures++
			if failures == 3 {
				c.logger.Warn().Err(err).Int("failures", failures).
					Msg("Mouth feed not available, will retry less frequently")
			} else if failures > 3 {
				c.logger.Debug().Err(err).Int("failures", failures).Msg("Mouth feed still unavailable")
			} else {
				c.logger.Warn().Err(err).Msg("Mouth feed connection failed, reconnecting")
			}
			if failures >= 3 {
				backoff = c.cfg.MaxReconnectDelay
			}
			c.publish(bus.EventTypeFeedError, map[string]any{
				"url":      c.cfg.URL,
				"error":    err.Error(),
				"failures": failures,
			})
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, c.cfg.MaxReconnectDelay)
	}
}

// session dials, subscribes and reads messages until the connection drops.
// It returns nil if the connection was established and later lost.
func (c *Client) session(ctx context.Context) error {
	c.logger.Info().Str("url", c.cfg.URL).Str("topic", c.cfg.Topic).Msg("Connecting to mouth feed")

	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(subscribeOp{Op: "subscribe", Topic: c.cfg.Topic, Type: c.cfg.MessageType}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	c.setConnected(true)
	c.logger.Info().Msg("Connected to mouth feed")

	// unblock ReadMessage when ctx ends
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn().Err(err).Msg("Mouth feed connection lost")
			}
			return nil
		}
		c.handleMessage(raw)
	}
}

func (c *Client) setConnected(up bool) {
	c.mu.Lock()
	was := c.connected
	c.connected = up
	c.mu.Unlock()

	switch {
	case up && !was:
		metrics.FeedConnected.Set(1)
		c.publish(bus.EventTypeFeedConnected, map[string]any{"url": c.cfg.URL})
	case !up && was:
		metrics.FeedConnected.Set(0)
		c.publish(bus.EventTypeFeedDisconnected, map[string]any{"url": c.cfg.URL})
	}
}

func (c *Client) publish(t bus.EventType, data map[string]any) {
	if c.bus != nil {
		c.bus.Publish(bus.Event{Type: t, Data: data})
	}
}

// handleMessage processes one incoming frame. Values are forwarded unclamped;
// the face clamps them when applied.
func (c *Client) handleMessage(raw []byte) {
	topic, value, err := parseMouth(raw)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to parse mouth message")
		return
	}
	if topic != "" && !sameTopic(topic, c.cfg.Topic) {
		c.logger.Debug().Str("topic", topic).Msg("Ignoring message for other topic")
		return
	}

	c.logger.Debug().Float64("value", value).Msg("Mouth value received")
	metrics.FeedMessages.WithLabelValues(c.cfg.Topic).Inc()

	if c.bus != nil {
		c.bus.PublishSync(bus.Event{
			Type: bus.EventTypeMouthOpen,
			Data: map[string]any{"value": value},
		})
	}
}

// parseMouth extracts the topic (empty for bare numbers) and value of a
// mouth message.
func parseMouth(raw []byte) (string, float64, error) {
	raw = bytes.TrimSpace(raw)

	var bare float64
	if err := json.Unmarshal(raw, &bare); err == nil {
		return "", bare, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", 0, err
	}
	if env.Op != "" && env.Op != "publish" {
		return "", 0, fmt.Errorf("unexpected op %q", env.Op)
	}
	switch {
	case env.Msg != nil && env.Msg.Data != nil:
		return env.Topic, *env.Msg.Data, nil
	case env.Data != nil:
		return env.Topic, *env.Data, nil
	default:
		return "", 0, errors.New("message has no data field")
	}
}

func sameTopic(a, b string) bool {
	return strings.TrimPrefix(a, "/") == strings.TrimPrefix(b, "/")
}
