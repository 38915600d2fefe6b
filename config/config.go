package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the fully resolved automation configuration.
type Config struct {
	Browser     BrowserConfig     `toml:"browser" json:"browser"`
	LLM         LLMConfig         `toml:"llm" json:"llm"`
	Performance PerformanceConfig `toml:"performance" json:"performance"`
	Tracking    TrackingConfig    `toml:"tracking" json:"tracking"`
}

// BrowserConfig controls the browser surface handed to the executor.
type BrowserConfig struct {
	Headless           bool    `toml:"headless" json:"headless"`
	WindowWidth        int     `toml:"window_width" json:"window_width"`
	WindowHeight       int     `toml:"window_height" json:"window_height"`
	HighlightElements  bool    `toml:"highlight_elements" json:"highlight_elements"`
	WaitBetweenActions float64 `toml:"wait_between_actions" json:"wait_between_actions"`
	DisableImages      bool    `toml:"disable_images" json:"disable_images"`
	UserAgent          string  `toml:"user_agent,omitempty" json:"user_agent,omitempty"`
	Proxy              string  `toml:"proxy,omitempty" json:"proxy,omitempty"`
}

// LLMConfig selects the model driving the agent.
type LLMConfig struct {
	Provider    string  `toml:"provider" json:"provider"`
	Model       string  `toml:"model" json:"model"`
	Temperature float64 `toml:"temperature" json:"temperature"`
	MaxTokens   int     `toml:"max_tokens" json:"max_tokens"`
}

// PerformanceConfig bounds an execution attempt.
type PerformanceConfig struct {
	MaxSteps      int  `toml:"max_steps" json:"max_steps"`
	TimeoutSecs   int  `toml:"timeout" json:"timeout"`
	RetryAttempts int  `toml:"retry_attempts" json:"retry_attempts"`
	ParallelTasks bool `toml:"parallel_tasks" json:"parallel_tasks"`
}

// Timeout returns the execution wall-clock budget.
func (p PerformanceConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// TrackingConfig controls what gets captured per step.
type TrackingConfig struct {
	SaveScreenshots bool   `toml:"save_screenshots" json:"save_screenshots"`
	SaveHTML        bool   `toml:"save_html" json:"save_html"`
	LogLevel        string `toml:"log_level" json:"log_level"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Browser: BrowserConfig{
			Headless:           false,
			WindowWidth:        1920,
			WindowHeight:       1080,
			HighlightElements:  true,
			WaitBetweenActions: 0.3,
		},
		LLM: LLMConfig{
			Provider:    "google",
			Model:       "gemini-2.5-flash",
			Temperature: 0.1,
			MaxTokens:   4000,
		},
		Performance: PerformanceConfig{
			MaxSteps:      50,
			TimeoutSecs:   300,
			RetryAttempts: 3,
		},
		Tracking: TrackingConfig{
			SaveScreenshots: true,
			LogLevel:        "INFO",
		},
	}
}

// Named presets for common automation profiles.
const (
	TemplateFast       = "fast_automation"
	TemplateVisual     = "visual_automation"
	TemplateStealth    = "stealth_automation"
	TemplateExtraction = "data_extraction"
)

// Template returns a named preset, or an error naming the unknown key.
func Template(name string) (Config, error) {
	switch name {
	case TemplateFast:
		cfg := Default()
		cfg.Browser.Headless = true
		cfg.Browser.WindowWidth = 1280
		cfg.Browser.WindowHeight = 720
		cfg.Browser.HighlightElements = false
		cfg.Browser.WaitBetweenActions = 0.1
		cfg.Browser.DisableImages = true
		cfg.LLM.Temperature = 0
		cfg.LLM.MaxTokens = 2000
		cfg.Performance.MaxSteps = 25
		cfg.Performance.TimeoutSecs = 120
		cfg.Performance.RetryAttempts = 2
		cfg.Performance.ParallelTasks = true
		cfg.Tracking.SaveScreenshots = false
		cfg.Tracking.LogLevel = "WARNING"
		return cfg, nil

	case TemplateVisual:
		cfg := Default()
		cfg.Browser.WaitBetweenActions = 1.0
		cfg.Performance.TimeoutSecs = 600
		cfg.Tracking.SaveHTML = true
		return cfg, nil

	case TemplateStealth:
		cfg := Default()
		cfg.Browser.WindowWidth = 1366
		cfg.Browser.WindowHeight = 768
		cfg.Browser.HighlightElements = false
		cfg.Browser.WaitBetweenActions = 2.0
		cfg.Browser.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		cfg.LLM.Temperature = 0.2
		cfg.Performance.MaxSteps = 40
		cfg.Performance.TimeoutSecs = 480
		return cfg, nil

	case TemplateExtraction:
		cfg := Default()
		cfg.Browser.Headless = true
		cfg.Browser.HighlightElements = false
		cfg.Browser.WaitBetweenActions = 0.2
		cfg.Browser.DisableImages = true
		cfg.LLM.Temperature = 0
		cfg.Performance.MaxSteps = 35
		cfg.Performance.TimeoutSecs = 240
		cfg.Tracking.SaveScreenshots = false
		return cfg, nil

	default:
		return Config{}, fmt.Errorf("unknown config template %q", name)
	}
}

// TemplateNames lists the available presets.
func TemplateNames() []string {
	return []string{TemplateFast, TemplateVisual, TemplateStealth, TemplateExtraction}
}

// Map converts the configuration to its canonical map form, the shape
// used for cache fingerprinting and override merging.
func (c Config) Map() map[string]interface{} {
	data, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

// Merge applies override onto base: override keys replace scalars and
// lists, nested mappings merge recursively at unbounded depth. Neither
// input is mutated.
func Merge(base, override map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base))
	for k, v := range base {
		merged[k] = v
	}

	for k, v := range override {
		if overMap, ok := v.(map[string]interface{}); ok {
			if baseMap, ok := merged[k].(map[string]interface{}); ok {
				merged[k] = Merge(baseMap, overMap)
				continue
			}
		}
		merged[k] = v
	}
	return merged
}

// Apply merges the override map onto this configuration and decodes the
// result back into a Config.
func (c Config) Apply(overrides map[string]interface{}) (Config, error) {
	if len(overrides) == 0 {
		return c, nil
	}

	merged := Merge(c.Map(), overrides)
	data, err := json.Marshal(merged)
	if err != nil {
		return Config{}, err
	}

	var out Config
	if err := json.Unmarshal(data, &out); err != nil {
		return Config{}, err
	}
	return out, nil
}

// LoadFile reads a configuration from a TOML file.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SaveFile writes the configuration to a TOML file.
func (c Config) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}
