package capture

import "time"

// Config tunes one capture agent.
type Config struct {
	// DebounceWindow is the quiet period after pointer release before a
	// selection counts as settled.
	DebounceWindow time.Duration `yaml:"debounce_window"`
	// SendAttempts bounds channel tries per save action, first try
	// included. The retry fires only on relay context loss.
	SendAttempts int `yaml:"send_attempts"`
	// RetryBackoff is the fixed wait before the retry.
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	// NotifyDuration is how long a result notification stays on screen.
	NotifyDuration time.Duration `yaml:"notify_duration"`
	// ToolbarSize is the rendered toolbar box used for clamping.
	ToolbarSize Size `yaml:"toolbar_size"`
	// ToolbarMargin keeps the toolbar this far inside the viewport.
	ToolbarMargin float64 `yaml:"toolbar_margin"`
}

func (c *Config) applyDefaults() {
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = 150 * time.Millisecond
	}
	if c.SendAttempts <= 0 {
		c.SendAttempts = 2
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	if c.NotifyDuration <= 0 {
		c.NotifyDuration = 3 * time.Second
	}
	if c.ToolbarSize.Width <= 0 {
		c.ToolbarSize.Width = 240
	}
	if c.ToolbarSize.Height <= 0 {
		c.ToolbarSize.Height = 40
	}
	if c.ToolbarMargin <= 0 {
		c.ToolbarMargin = 10
	}
}
