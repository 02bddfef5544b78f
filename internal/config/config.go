package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadFromBytes parses a YAML config after expanding ${ENV} references and
// resolves the URL and selector tables.
func LoadFromBytes(data []byte) (Config, error) {
	var c Config
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}
	if err := c.resolve(); err != nil {
		return c, err
	}
	return c, nil
}

// MergeFile overlays the YAML file at path onto c.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return c.resolve()
}

// parseBool parses a string as boolean with a default value.
// Accepts: "true", "1", "yes" as true; empty or other values return default.
func parseBool(s string, defaultVal bool) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return defaultVal
	}
	return s == "true" || s == "1" || s == "yes"
}

type Config struct {
	Browser struct {
		Headless       bool    `yaml:"headless"`
		ExecutablePath string  `yaml:"executablePath"`
		SlowMoMs       float64 `yaml:"slowMoMs"`
		ViewportWidth  int     `yaml:"viewportWidth"`
		ViewportHeight int     `yaml:"viewportHeight"`
	} `yaml:"browser"`

	Timeouts Timeouts `yaml:"timeouts"`

	Mailbox struct {
		Host          string        `yaml:"host"`
		Port          int           `yaml:"port"`
		Sender        string        `yaml:"sender"`
		DeliveryDelay time.Duration `yaml:"deliveryDelay"`
		MinFontPx     float64       `yaml:"minFontPx"`
	} `yaml:"mailbox"`

	Retry struct {
		MaxRetries    int           `yaml:"maxRetries"`
		Delay         time.Duration `yaml:"delay"`
		LoginAttempts int           `yaml:"loginAttempts"`
	} `yaml:"retry"`

	Logging struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"maxSizeMB"`
		MaxBackups int    `yaml:"maxBackups"`
	} `yaml:"logging"`

	Server struct {
		Addr        string        `yaml:"addr"`
		JWTSecret   string        `yaml:"jwtSecret"`
		TokenExpire time.Duration `yaml:"tokenExpire"`
	} `yaml:"server"`

	Watch struct {
		Schedule string `yaml:"schedule"`
	} `yaml:"watch"`

	Screenshots struct {
		Dir string `yaml:"dir"`
	} `yaml:"screenshots"`

	Accounts struct {
		DefaultAmount   float64 `yaml:"defaultAmount"`
		DefaultCurrency string  `yaml:"defaultCurrency"`
	} `yaml:"accounts"`

	URLOverrides      URLOverrides      `yaml:"urls"`
	SelectorOverrides map[string]string `yaml:"selectors"`

	// Resolved after load.
	URLs      URLTable      `yaml:"-"`
	Selectors SelectorTable `yaml:"-"`
}

// Timeouts bounds every blocking wait in the workflows.
type Timeouts struct {
	Default         time.Duration `yaml:"default"`
	Fetch           time.Duration `yaml:"fetch"`
	TwoFactorScreen time.Duration `yaml:"twoFactorScreen"`
	TrustPrompt     time.Duration `yaml:"trustPrompt"`
	LimitSettle     time.Duration `yaml:"limitSettle"`
	ConfirmSettle   time.Duration `yaml:"confirmSettle"`
	KeystrokeDelay  time.Duration `yaml:"keystrokeDelay"`
}

// DefaultTimeouts returns the timings the web application is known to need.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Default:         10 * time.Second,
		Fetch:           10 * time.Second,
		TwoFactorScreen: 10 * time.Second,
		TrustPrompt:     3 * time.Second,
		LimitSettle:     3 * time.Second,
		ConfirmSettle:   4 * time.Second,
		KeystrokeDelay:  100 * time.Millisecond,
	}
}

func (t *Timeouts) fillDefaults() {
	d := DefaultTimeouts()
	if t.Default == 0 {
		t.Default = d.Default
	}
	if t.Fetch == 0 {
		t.Fetch = d.Fetch
	}
	if t.TwoFactorScreen == 0 {
		t.TwoFactorScreen = d.TwoFactorScreen
	}
	if t.TrustPrompt == 0 {
		t.TrustPrompt = d.TrustPrompt
	}
	if t.LimitSettle == 0 {
		t.LimitSettle = d.LimitSettle
	}
	if t.ConfirmSettle == 0 {
		t.ConfirmSettle = d.ConfirmSettle
	}
	if t.KeystrokeDelay == 0 {
		t.KeystrokeDelay = d.KeystrokeDelay
	}
}

func (c *Config) resolve() error {
	c.Timeouts.fillDefaults()
	if c.Mailbox.Host == "" {
		c.Mailbox.Host = "imap.gmail.com"
	}
	if c.Mailbox.Port == 0 {
		c.Mailbox.Port = 993
	}
	if c.Mailbox.Sender == "" {
		c.Mailbox.Sender = "no-reply@cocos.capital"
	}
	if c.Mailbox.DeliveryDelay == 0 {
		c.Mailbox.DeliveryDelay = 20 * time.Second
	}
	if c.Mailbox.MinFontPx == 0 {
		c.Mailbox.MinFontPx = 24
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = 3
	}
	if c.Retry.Delay == 0 {
		c.Retry.Delay = time.Second
	}
	if c.Retry.LoginAttempts == 0 {
		c.Retry.LoginAttempts = 1
	}
	if c.Retry.LoginAttempts > c.Retry.MaxRetries {
		return fmt.Errorf("retry.loginAttempts %d exceeds retry.maxRetries %d", c.Retry.LoginAttempts, c.Retry.MaxRetries)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8089"
	}
	if c.Server.TokenExpire == 0 {
		c.Server.TokenExpire = 24 * time.Hour
	}
	if c.Accounts.DefaultAmount == 0 {
		c.Accounts.DefaultAmount = 5000
	}
	if c.Accounts.DefaultCurrency == "" {
		c.Accounts.DefaultCurrency = "ARS"
	}
	if c.Browser.ViewportWidth == 0 {
		c.Browser.ViewportWidth = 1366
	}
	if c.Browser.ViewportHeight == 0 {
		c.Browser.ViewportHeight = 900
	}
	if v := os.Getenv("COCOS_HEADLESS"); v != "" {
		c.Browser.Headless = parseBool(v, c.Browser.Headless)
	}

	urls, err := DefaultURLs().With(c.URLOverrides)
	if err != nil {
		return fmt.Errorf("urls: %w", err)
	}
	c.URLs = urls

	sels, err := DefaultSelectors().With(c.SelectorOverrides)
	if err != nil {
		return fmt.Errorf("selectors: %w", err)
	}
	c.Selectors = sels
	return nil
}
