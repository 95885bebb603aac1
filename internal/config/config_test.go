package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 33*time.Millisecond, cfg.Avatar.FrameInterval)
	assert.Equal(t, 400*time.Millisecond, cfg.Blink.OpenMin)
	assert.Equal(t, 5*time.Second, cfg.Blink.OpenMax)
	assert.Equal(t, 6*time.Second, cfg.Breath.Period)
	assert.Equal(t, 0.2, cfg.Saccade.Gain)
}

func TestLoad_WritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Blink, cfg.Blink)
	assert.Equal(t, DefaultConfig().Feed, cfg.Feed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "open_max: 5s")
}

func TestLoad_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
avatar:
  seed: 42
  face_color: "#ff8800"
blink:
  open_min: 1s
  open_max: 2s
feed:
  enabled: true
  url: ws://robot.local:9090
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(42), cfg.Avatar.Seed)
	assert.Equal(t, "#ff8800", cfg.Avatar.FaceColor)
	assert.Equal(t, time.Second, cfg.Blink.OpenMin)
	assert.Equal(t, 2*time.Second, cfg.Blink.OpenMax)
	assert.Equal(t, 200*time.Millisecond, cfg.Blink.CloseMin, "unset keys keep defaults")
	assert.True(t, cfg.Feed.Enabled)
	assert.Equal(t, "ws://robot.local:9090", cfg.Feed.URL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("CORTEXFACE_AVATAR_SEED", "7")
	t.Setenv("CORTEXFACE_BREATH_PERIOD", "4s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), cfg.Avatar.Seed)
	assert.Equal(t, 4*time.Second, cfg.Breath.Period)
}

func TestLoad_RejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("blink:\n  open_min: 9s\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Metrics.Addr = ":9102"
	cfg.Saccade.Gain = 0.35

	require.NoError(t, NewLoader().Save(cfg, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9102", got.Metrics.Addr)
	assert.Equal(t, 0.35, got.Saccade.Gain)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"window":       func(c *Config) { c.Window.Width = 0 },
		"interval":     func(c *Config) { c.Avatar.FrameInterval = 0 },
		"color":        func(c *Config) { c.Avatar.FaceColor = "white" },
		"blink":        func(c *Config) { c.Blink.CloseMin = time.Second },
		"saccade gain": func(c *Config) { c.Saccade.Gain = -0.1 },
		"breath":       func(c *Config) { c.Breath.Period = 0 },
		"feed url": func(c *Config) {
			c.Feed.Enabled = true
			c.Feed.URL = "http://localhost"
		},
		"feed delays": func(c *Config) {
			c.Feed.Enabled = true
			c.Feed.MaxReconnectDelay = time.Second
		},
		"log level": func(c *Config) { c.Log.Level = "loud" },
		"snapshot":  func(c *Config) { c.Snapshot.Frames = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestValidate_DisabledFeedIgnoresURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Feed.URL = "not a url"
	assert.NoError(t, cfg.Validate())
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	l := NewLoader()
	_, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, l.ConfigFile())

	changed := make(chan *Config, 4)
	l.Watch(func(cfg *Config, err error) {
		if err == nil {
			changed <- cfg
		}
	})

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	// a truncating write can surface as more than one event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case got := <-changed:
			if got.Log.Level == "debug" {
				return
			}
		case <-timeout:
			t.Fatal("no reload after write")
		}
	}
}
