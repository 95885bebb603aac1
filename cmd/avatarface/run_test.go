package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexface/internal/bus"
	"github.com/normanking/cortexface/internal/logging"
)

func TestWatchFeed_LogsConnectionChanges(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	logger, err := logging.New(&logging.Config{Level: "debug", MaxHistory: 10})
	require.NoError(t, err)

	b := bus.NewEventBus()
	watchFeed(b, logger.Component("feed"))

	b.PublishSync(bus.Event{Type: bus.EventTypeFeedConnected, Data: map[string]any{"url": "ws://robot:9090"}})
	b.PublishSync(bus.Event{Type: bus.EventTypeFeedError, Data: map[string]any{"url": "ws://robot:9090", "error": "refused", "failures": 2}})
	b.PublishSync(bus.Event{Type: bus.EventTypeFeedDisconnected, Data: map[string]any{"url": "ws://robot:9090"}})

	hist := logger.History(3)
	require.Len(t, hist, 3)
	assert.Equal(t, "Mouth feed up", hist[0].Message)
	assert.Equal(t, "info", hist[0].Level)
	assert.Equal(t, "Mouth feed attempt failed", hist[1].Message)
	assert.Equal(t, "debug", hist[1].Level)
	assert.Equal(t, "Mouth feed down", hist[2].Message)
	assert.Equal(t, "warn", hist[2].Level)
	for _, e := range hist {
		assert.Equal(t, "feed", e.Component)
	}
}
