package cli

import (
	"github.com/neboloop/cocosbot/internal/config"
)

// Shared CLI flags (used across multiple command files)
var (
	cfgFile  string
	headless bool
	verbose  bool
)

// AppConfig holds the loaded configuration (set by main)
var AppConfig *config.Config
