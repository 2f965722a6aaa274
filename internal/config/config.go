// Package config loads the engine's per-component configuration from
// environment variables, following the same Default()-plus-viper-bind
// shape used for the sibling fleet-agent config in the retrieved pack:
// one plain struct per component, mapstructure tags, sane defaults,
// bounds enforced at construction rather than scattered through call
// sites.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "AUTOMATION"

// WorkerConfig bounds the automation worker (C2).
type WorkerConfig struct {
	InboxCapacity       int `mapstructure:"worker_inbox_capacity"`
	OperationTimeoutMs  int `mapstructure:"operation_timeout_ms"`
	WaitForTimeoutMs    int `mapstructure:"wait_for_timeout_ms"`
	PropertyQueryTimeoutMs int `mapstructure:"property_query_timeout_ms"`
}

// WindowConfig bounds the window service (C4).
type WindowConfig struct {
	DefaultWaitTimeoutMs int `mapstructure:"window_wait_timeout_ms"`
	StatePollIntervalMs  int `mapstructure:"window_state_poll_interval_ms"`
	WaitForPollIntervalMs int `mapstructure:"window_wait_for_poll_interval_ms"`
	DismissDialogBudgetMs int `mapstructure:"dismiss_dialog_budget_ms"`
	DismissDialogPollMs   int `mapstructure:"dismiss_dialog_poll_ms"`
	SettleDelayMs         int `mapstructure:"window_settle_delay_ms"`
	ResponsivenessProbeTimeoutMs int `mapstructure:"window_responsiveness_probe_timeout_ms"`
}

// MouseConfig bounds the mouse half of the input service (C5).
type MouseConfig struct {
	TimeoutMs  int `mapstructure:"mouse_timeout_ms"`
	DragStepMs int `mapstructure:"mouse_drag_step_ms"`
	DragSteps  int `mapstructure:"mouse_drag_steps"`
}

// KeyboardConfig bounds the keyboard half of the input service (C5).
type KeyboardConfig struct {
	InterKeyDelayMs int `mapstructure:"keyboard_inter_key_delay_ms"`
	ChunkDelayMs    int `mapstructure:"keyboard_chunk_delay_ms"`
	ChunkSize       int `mapstructure:"keyboard_chunk_size"`
	TimeoutMs       int `mapstructure:"keyboard_timeout_ms"`
}

// CaptureConfig bounds the capture service (C7).
type CaptureConfig struct {
	TimeoutMs       int    `mapstructure:"screenshot_timeout_ms"`
	MaxPixels       int    `mapstructure:"screenshot_max_pixels"`
	DefaultFormat   string `mapstructure:"screenshot_default_format"`
	DefaultQuality  int    `mapstructure:"screenshot_default_quality"`
	DefaultMaxWidth int    `mapstructure:"screenshot_default_max_width"`
	DefaultMaxHeight int   `mapstructure:"screenshot_default_max_height"`
}

// SafetyConfig bounds the supplemented audit/rate-limit features.
type SafetyConfig struct {
	AuditLogPath          string `mapstructure:"audit_log_path"`
	AuditLogMaxEntries    int    `mapstructure:"audit_log_max_entries"`
	MaxActionsPerMinute   int    `mapstructure:"max_actions_per_minute"`
}

// Config aggregates every component config, constructed once at
// startup and injected into services; nothing reads env vars again
// after this point.
type Config struct {
	LogLevel string         `mapstructure:"log_level"`
	Worker   WorkerConfig   `mapstructure:",squash"`
	Window   WindowConfig   `mapstructure:",squash"`
	Mouse    MouseConfig    `mapstructure:",squash"`
	Keyboard KeyboardConfig `mapstructure:",squash"`
	Capture  CaptureConfig  `mapstructure:",squash"`
	Safety   SafetyConfig   `mapstructure:",squash"`
}

// Default returns the configuration with every default from the
// external-interfaces table applied.
func Default() Config {
	return Config{
		LogLevel: "info",
		Worker: WorkerConfig{
			InboxCapacity:          64,
			OperationTimeoutMs:     5000,
			WaitForTimeoutMs:       30000,
			PropertyQueryTimeoutMs: 100,
		},
		Window: WindowConfig{
			DefaultWaitTimeoutMs:  30000,
			StatePollIntervalMs:   100,
			WaitForPollIntervalMs: 250,
			DismissDialogBudgetMs: 1000,
			DismissDialogPollMs:   100,
			SettleDelayMs:         50,
			ResponsivenessProbeTimeoutMs: 200,
		},
		Mouse: MouseConfig{
			TimeoutMs:  5000,
			DragStepMs: 10,
			DragSteps:  10,
		},
		Keyboard: KeyboardConfig{
			InterKeyDelayMs: 10,
			ChunkDelayMs:    50,
			ChunkSize:       1000,
			TimeoutMs:       30000,
		},
		Capture: CaptureConfig{
			TimeoutMs:        5000,
			MaxPixels:        33177600, // 8K ceiling
			DefaultFormat:    "jpeg",
			DefaultQuality:   85,
			DefaultMaxWidth:  1568,
			DefaultMaxHeight: 0,
		},
		Safety: SafetyConfig{
			AuditLogMaxEntries:  1000,
			MaxActionsPerMinute: 600,
		},
	}
}

// Load builds a Config from AUTOMATION_-prefixed environment
// variables layered on top of Default(), then clamps every bound.
func Load() (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindDefaults(v, cfg)

	var out Config
	if err := v.Unmarshal(&out); err != nil {
		return cfg, err
	}
	out.clamp()
	return out, nil
}

func bindDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("worker_inbox_capacity", cfg.Worker.InboxCapacity)
	v.SetDefault("operation_timeout_ms", cfg.Worker.OperationTimeoutMs)
	v.SetDefault("wait_for_timeout_ms", cfg.Worker.WaitForTimeoutMs)
	v.SetDefault("property_query_timeout_ms", cfg.Worker.PropertyQueryTimeoutMs)
	v.SetDefault("window_wait_timeout_ms", cfg.Window.DefaultWaitTimeoutMs)
	v.SetDefault("window_state_poll_interval_ms", cfg.Window.StatePollIntervalMs)
	v.SetDefault("window_wait_for_poll_interval_ms", cfg.Window.WaitForPollIntervalMs)
	v.SetDefault("dismiss_dialog_budget_ms", cfg.Window.DismissDialogBudgetMs)
	v.SetDefault("dismiss_dialog_poll_ms", cfg.Window.DismissDialogPollMs)
	v.SetDefault("window_settle_delay_ms", cfg.Window.SettleDelayMs)
	v.SetDefault("window_responsiveness_probe_timeout_ms", cfg.Window.ResponsivenessProbeTimeoutMs)
	v.SetDefault("mouse_timeout_ms", cfg.Mouse.TimeoutMs)
	v.SetDefault("mouse_drag_step_ms", cfg.Mouse.DragStepMs)
	v.SetDefault("mouse_drag_steps", cfg.Mouse.DragSteps)
	v.SetDefault("keyboard_inter_key_delay_ms", cfg.Keyboard.InterKeyDelayMs)
	v.SetDefault("keyboard_chunk_delay_ms", cfg.Keyboard.ChunkDelayMs)
	v.SetDefault("keyboard_chunk_size", cfg.Keyboard.ChunkSize)
	v.SetDefault("keyboard_timeout_ms", cfg.Keyboard.TimeoutMs)
	v.SetDefault("screenshot_timeout_ms", cfg.Capture.TimeoutMs)
	v.SetDefault("screenshot_max_pixels", cfg.Capture.MaxPixels)
	v.SetDefault("screenshot_default_format", cfg.Capture.DefaultFormat)
	v.SetDefault("screenshot_default_quality", cfg.Capture.DefaultQuality)
	v.SetDefault("screenshot_default_max_width", cfg.Capture.DefaultMaxWidth)
	v.SetDefault("screenshot_default_max_height", cfg.Capture.DefaultMaxHeight)
	v.SetDefault("audit_log_path", cfg.Safety.AuditLogPath)
	v.SetDefault("audit_log_max_entries", cfg.Safety.AuditLogMaxEntries)
	v.SetDefault("max_actions_per_minute", cfg.Safety.MaxActionsPerMinute)
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

func (c *Config) clamp() {
	c.Worker.InboxCapacity = clampInt(c.Worker.InboxCapacity, 1, 4096)
	c.Worker.OperationTimeoutMs = clampInt(c.Worker.OperationTimeoutMs, 1, 0)
	c.Worker.WaitForTimeoutMs = clampInt(c.Worker.WaitForTimeoutMs, 1, 0)
	c.Window.StatePollIntervalMs = clampInt(c.Window.StatePollIntervalMs, 10, 0)
	c.Window.WaitForPollIntervalMs = clampInt(c.Window.WaitForPollIntervalMs, 10, 0)
	c.Mouse.DragSteps = clampInt(c.Mouse.DragSteps, 1, 200)
	c.Keyboard.ChunkSize = clampInt(c.Keyboard.ChunkSize, 1, 1000)
	c.Capture.DefaultQuality = clampInt(c.Capture.DefaultQuality, 1, 100)
	if c.Capture.MaxPixels <= 0 {
		c.Capture.MaxPixels = 33177600
	}
}

// PollInterval is a convenience conversion used by the wait-loop
// primitive shared across C4/C6.
func PollInterval(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
