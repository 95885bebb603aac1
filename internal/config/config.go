// Package config provides configuration management for cortexface
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/normanking/cortexface/internal/canvas"
	"github.com/normanking/cortexface/internal/face"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration
type Config struct {
	Window   WindowConfig   `mapstructure:"window"`
	Avatar   AvatarConfig   `mapstructure:"avatar"`
	Blink    BlinkConfig    `mapstructure:"blink"`
	Saccade  SaccadeConfig  `mapstructure:"saccade"`
	Breath   BreathConfig   `mapstructure:"breath"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
}

// WindowConfig configures the window
type WindowConfig struct {
	Title     string `mapstructure:"title"`
	Width     int    `mapstructure:"width"`
	Height    int    `mapstructure:"height"`
	VSync     bool   `mapstructure:"vsync"`
	ShaderDir string `mapstructure:"shader_dir"` // optional on-disk shaders, reloaded on change
}

// AvatarConfig configures the face host
type AvatarConfig struct {
	FrameInterval   time.Duration `mapstructure:"frame_interval"`
	MaxElapsed      time.Duration `mapstructure:"max_elapsed"` // clamp after stalls
	Seed            uint64        `mapstructure:"seed"`        // 0 seeds from the runtime
	MouthSmoothing  time.Duration `mapstructure:"mouth_smoothing"`
	FaceColor       string        `mapstructure:"face_color"`
	BackgroundColor string        `mapstructure:"background_color"`
}

// BlinkConfig configures blink timing. Field order matches face.BlinkConfig.
type BlinkConfig struct {
	OpenMin  time.Duration `mapstructure:"open_min"`
	OpenMax  time.Duration `mapstructure:"open_max"`
	CloseMin time.Duration `mapstructure:"close_min"`
	CloseMax time.Duration `mapstructure:"close_max"`
}

// SaccadeConfig configures gaze jumps. Field order matches face.SaccadeConfig.
type SaccadeConfig struct {
	UpdateMin time.Duration `mapstructure:"update_min"`
	UpdateMax time.Duration `mapstructure:"update_max"`
	Gain      float64       `mapstructure:"gain"`
}

// BreathConfig configures the breathing cycle
type BreathConfig struct {
	Period time.Duration `mapstructure:"period"`
}

// FeedConfig configures the websocket mouth feed
type FeedConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	URL               string        `mapstructure:"url"`
	Topic             string        `mapstructure:"topic"`
	MessageType       string        `mapstructure:"message_type"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnectDelay time.Duration `mapstructure:"max_reconnect_delay"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the server
}

// LogConfig configures logging
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	MaxHistory int    `mapstructure:"max_history"`
}

// SnapshotConfig holds defaults for headless snapshots
type SnapshotConfig struct {
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Frames int    `mapstructure:"frames"`
	Out    string `mapstructure:"out"`
}

// DefaultConfig returns the reference face configuration
func DefaultConfig() *Config {
	dir, _ := Dir()
	blink := face.DefaultBlinkConfig()
	saccade := face.DefaultSaccadeConfig()

	return &Config{
		Window: WindowConfig{
			Title:  "cortexface",
			Width:  face.ReferenceWidth * 2,
			Height: face.ReferenceHeight * 2,
			VSync:  true,
		},
		Avatar: AvatarConfig{
			FrameInterval:   33 * time.Millisecond,
			MaxElapsed:      100 * time.Millisecond,
			MouthSmoothing:  0,
			FaceColor:       "#ffffff",
			BackgroundColor: "#000000",
		},
		Blink:   BlinkConfig(blink),
		Saccade: SaccadeConfig(saccade),
		Breath:  BreathConfig{Period: face.DefaultBreathPeriod},
		Feed: FeedConfig{
			Enabled:           false,
			URL:               "ws://localhost:9090",
			Topic:             "/mouth",
			MessageType:       "std_msgs/Float32",
			ReconnectDelay:    3 * time.Second,
			MaxReconnectDelay: 60 * time.Second,
		},
		Metrics: MetricsConfig{Addr: ""},
		Log: LogConfig{
			Dir:        filepath.Join(dir, "logs"),
			Level:      "info",
			Console:    true,
			MaxHistory: 500,
		},
		Snapshot: SnapshotConfig{
			Width:  face.ReferenceWidth,
			Height: face.ReferenceHeight,
			Frames: 1,
			Out:    "face.png",
		},
	}
}

// Dir returns the configuration directory path
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".cortexface"), nil
}

// Load reads configuration with a fresh Loader.
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}

// Loader owns one viper instance so a loaded configuration can be saved and
// watched.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader with defaults and environment overrides
// registered. Environment keys use the CORTEXFACE_ prefix with dots replaced
// by underscores, for example CORTEXFACE_FEED_URL.
func NewLoader() *Loader {
	v := viper.New()
	register(v.SetDefault, DefaultConfig())

	v.SetEnvPrefix("CORTEXFACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// Load reads path, or config.yaml from ~/.cortexface and the working
// directory when path is empty. When no file exists the defaults are written
// to path (or ~/.cortexface/config.yaml).
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		l.v.SetConfigFile(path)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := l.write(path); err != nil {
				return nil, err
			}
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(dir)
		l.v.AddConfigPath(".")
		path = filepath.Join(dir, "config.yaml")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := l.write(path); err != nil {
			return nil, err
		}
	}

	return l.decode()
}

// Save writes cfg to path as YAML.
func (l *Loader) Save(cfg *Config, path string) error {
	register(l.v.Set, cfg)
	return l.write(path)
}

// ConfigFile returns the file the configuration was read from.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Watch calls fn with the re-read configuration whenever the file is written.
// fn receives a validation error instead of a config when the new file is
// unusable; the previous configuration should then stay in effect.
func (l *Loader) Watch(fn func(*Config, error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		fn(cfg, err)
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := l.v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// register passes every field of cfg to set. Durations are stored as strings
// so written files stay readable.
func register(set func(key string, value any), cfg *Config) {
	d := func(t time.Duration) string { return t.String() }

	set("window.title", cfg.Window.Title)
	set("window.width", cfg.Window.Width)
	set("window.height", cfg.Window.Height)
	set("window.vsync", cfg.Window.VSync)
	set("window.shader_dir", cfg.Window.ShaderDir)

	set("avatar.frame_interval", d(cfg.Avatar.FrameInterval))
	set("avatar.max_elapsed", d(cfg.Avatar.MaxElapsed))
	set("avatar.seed", cfg.Avatar.Seed)
	set("avatar.mouth_smoothing", d(cfg.Avatar.MouthSmoothing))
	set("avatar.face_color", cfg.Avatar.FaceColor)
	set("avatar.background_color", cfg.Avatar.BackgroundColor)

	set("blink.open_min", d(cfg.Blink.OpenMin))
	set("blink.open_max", d(cfg.Blink.OpenMax))
	set("blink.close_min", d(cfg.Blink.CloseMin))
	set("blink.close_max", d(cfg.Blink.CloseMax))

	set("saccade.update_min", d(cfg.Saccade.UpdateMin))
	set("saccade.update_max", d(cfg.Saccade.UpdateMax))
	set("saccade.gain", cfg.Saccade.Gain)

	set("breath.period", d(cfg.Breath.Period))

	set("feed.enabled", cfg.Feed.Enabled)
	set("feed.url", cfg.Feed.URL)
	set("feed.topic", cfg.Feed.Topic)
	set("feed.message_type", cfg.Feed.MessageType)
	set("feed.reconnect_delay", d(cfg.Feed.ReconnectDelay))
	set("feed.max_reconnect_delay", d(cfg.Feed.MaxReconnectDelay))

	set("metrics.addr", cfg.Metrics.Addr)

	set("log.dir", cfg.Log.Dir)
	set("log.level", cfg.Log.Level)
	set("log.console", cfg.Log.Console)
	set("log.max_history", cfg.Log.MaxHistory)

	set("snapshot.width", cfg.Snapshot.Width)
	set("snapshot.height", cfg.Snapshot.Height)
	set("snapshot.frames", cfg.Snapshot.Frames)
	set("snapshot.out", cfg.Snapshot.Out)
}

// Validate reports every unusable setting.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		bad("window size %dx%d", c.Window.Width, c.Window.Height)
	}

	if c.Avatar.FrameInterval <= 0 {
		bad("avatar.frame_interval %v must be positive", c.Avatar.FrameInterval)
	}
	if c.Avatar.MaxElapsed < 0 {
		bad("avatar.max_elapsed %v is negative", c.Avatar.MaxElapsed)
	}
	if c.Avatar.MouthSmoothing < 0 {
		bad("avatar.mouth_smoothing %v is negative", c.Avatar.MouthSmoothing)
	}
	if _, err := canvas.ParseColor(c.Avatar.FaceColor); err != nil {
		bad("avatar.face_color: %v", err)
	}
	if _, err := canvas.ParseColor(c.Avatar.BackgroundColor); err != nil {
		bad("avatar.background_color: %v", err)
	}

	if err := face.BlinkConfig(c.Blink).Validate(); err != nil {
		bad("blink: %v", err)
	}
	if err := face.SaccadeConfig(c.Saccade).Validate(); err != nil {
		bad("saccade: %v", err)
	}
	if c.Breath.Period <= 0 {
		bad("breath.period %v must be positive", c.Breath.Period)
	}

	if c.Feed.Enabled {
		u, err := url.Parse(c.Feed.URL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			bad("feed.url %q must be a ws:// or wss:// URL", c.Feed.URL)
		}
		if c.Feed.ReconnectDelay <= 0 || c.Feed.MaxReconnectDelay < c.Feed.ReconnectDelay {
			bad("feed reconnect delays [%v, %v]", c.Feed.ReconnectDelay, c.Feed.MaxReconnectDelay)
		}
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		bad("log.level %q", c.Log.Level)
	}

	if c.Snapshot.Width <= 0 || c.Snapshot.Height <= 0 || c.Snapshot.Frames <= 0 {
		bad("snapshot %dx%d over %d frames", c.Snapshot.Width, c.Snapshot.Height, c.Snapshot.Frames)
	}

	return errors.Join(errs...)
}
