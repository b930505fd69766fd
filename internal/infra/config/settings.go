package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/ralph-run/ralph/internal/app/config"
)

// Default values applied when neither setting.yaml nor the environment
// provides a setting.
const (
	DefaultHome            = ".ralph"
	DefaultAgentType       = "claude-cli"
	DefaultAgentBin        = "claude"
	DefaultTimeoutSec      = 900
	DefaultMaxRetries      = 3
	DefaultLedgerTailSize  = 10
	DefaultMaxPayloadBytes = 200_000
	DefaultStderrLevel     = "info"
)

// RawSettings represents the structure of the setting.yaml file.
// Pointer fields distinguish "absent" from zero values during merging.
type RawSettings struct {
	Home       *string `yaml:"home"`
	AgentType  *string `yaml:"agent"`
	AgentBin   *string `yaml:"agentBin"`
	TimeoutSec *int    `yaml:"timeoutSec"`

	MaxRetries      *int `yaml:"maxRetries"`
	MaxIterations   *int `yaml:"maxIterations"`
	LedgerTailSize  *int `yaml:"ledgerTailSize"`
	MaxPayloadBytes *int `yaml:"maxPayloadBytes"`

	ValidationCommand *string `yaml:"validationCommand"`
	WorkDir           *string `yaml:"workDir"`

	SentinelStopsRun *bool `yaml:"sentinelStopsRun"`
	DisableLearning  *bool `yaml:"disableLearning"`

	StderrLevel *string `yaml:"stderrLevel"`
}

// LoadSettings loads configuration for the given base directory.
// Priority: setting.yaml > RALPH_* environment variables > defaults.
func LoadSettings(fs afero.Fs, baseDir string) (*config.AppConfig, error) {
	settings := &RawSettings{}
	configSource := "default"
	settingPath := ""

	yamlPath := filepath.Join(baseDir, "setting.yaml")
	if data, err := afero.ReadFile(fs, yamlPath); err == nil {
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", yamlPath, err)
		}
		configSource = "yaml"
		settingPath = yamlPath
	}

	if applyEnv(settings) && configSource == "default" {
		configSource = "env"
	}
	applyDefaults(settings, baseDir)

	return buildAppConfig(settings, configSource, settingPath), nil
}

// applyEnv fills nil fields from RALPH_* variables. File settings win
// over the environment. Reports whether any variable was consumed.
func applyEnv(settings *RawSettings) bool {
	applied := false

	setStr := func(dst **string, key string) {
		if *dst != nil {
			return
		}
		if v := os.Getenv(key); v != "" {
			*dst = &v
			applied = true
		}
	}
	setInt := func(dst **int, key string) {
		if *dst != nil {
			return
		}
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = &n
				applied = true
			}
		}
	}
	setBool := func(dst **bool, key string) {
		if *dst != nil {
			return
		}
		if v := os.Getenv(key); v != "" {
			b := toBool(v)
			*dst = &b
			applied = true
		}
	}

	setStr(&settings.Home, "RALPH_HOME")
	setStr(&settings.AgentType, "RALPH_AGENT")
	setStr(&settings.AgentBin, "RALPH_AGENT_BIN")
	setInt(&settings.TimeoutSec, "RALPH_TIMEOUT_SEC")
	setInt(&settings.MaxRetries, "RALPH_MAX_RETRIES")
	setInt(&settings.MaxIterations, "RALPH_MAX_ITERATIONS")
	setInt(&settings.LedgerTailSize, "RALPH_LEDGER_TAIL_SIZE")
	setInt(&settings.MaxPayloadBytes, "RALPH_MAX_PAYLOAD_BYTES")
	setStr(&settings.ValidationCommand, "RALPH_VALIDATION_CMD")
	setStr(&settings.WorkDir, "RALPH_WORK_DIR")
	setBool(&settings.SentinelStopsRun, "RALPH_SENTINEL_STOPS_RUN")
	setBool(&settings.DisableLearning, "RALPH_DISABLE_LEARNING")
	setStr(&settings.StderrLevel, "RALPH_STDERR_LEVEL")

	return applied
}

// applyDefaults fills in default values for any remaining nil fields
func applyDefaults(settings *RawSettings, baseDir string) {
	if settings.Home == nil {
		v := baseDir
		if v == "" {
			v = DefaultHome
		}
		settings.Home = &v
	}
	if settings.AgentType == nil {
		v := DefaultAgentType
		settings.AgentType = &v
	}
	if settings.AgentBin == nil {
		v := DefaultAgentBin
		settings.AgentBin = &v
	}
	if settings.TimeoutSec == nil {
		v := DefaultTimeoutSec
		settings.TimeoutSec = &v
	}
	if settings.MaxRetries == nil {
		v := DefaultMaxRetries
		settings.MaxRetries = &v
	}
	if settings.MaxIterations == nil {
		v := 0 // unlimited
		settings.MaxIterations = &v
	}
	if settings.LedgerTailSize == nil {
		v := DefaultLedgerTailSize
		settings.LedgerTailSize = &v
	}
	if settings.MaxPayloadBytes == nil {
		v := DefaultMaxPayloadBytes
		settings.MaxPayloadBytes = &v
	}
	if settings.ValidationCommand == nil {
		v := ""
		settings.ValidationCommand = &v
	}
	if settings.WorkDir == nil {
		v := "."
		settings.WorkDir = &v
	}
	if settings.SentinelStopsRun == nil {
		v := true
		settings.SentinelStopsRun = &v
	}
	if settings.DisableLearning == nil {
		v := false
		settings.DisableLearning = &v
	}
	if settings.StderrLevel == nil {
		v := DefaultStderrLevel
		settings.StderrLevel = &v
	}
}

// buildAppConfig converts RawSettings to AppConfig
func buildAppConfig(settings *RawSettings, configSource, settingPath string) *config.AppConfig {
	home := *settings.Home
	return config.NewAppConfig(
		home,
		*settings.AgentType,
		*settings.AgentBin,
		*settings.TimeoutSec,
		*settings.MaxRetries,
		*settings.MaxIterations,
		*settings.LedgerTailSize,
		*settings.MaxPayloadBytes,
		*settings.ValidationCommand,
		*settings.WorkDir,
		*settings.SentinelStopsRun,
		*settings.DisableLearning,
		*settings.StderrLevel,
		filepath.Join(home, "backlog.yaml"),
		filepath.Join(home, "ledger.ndjson"),
		filepath.Join(home, "learnings.db"),
		configSource,
		settingPath,
	)
}

// toBool converts common string representations to boolean
func toBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// CreateDefaultSettings renders a default setting.yaml
func CreateDefaultSettings() []byte {
	settings := &RawSettings{}
	applyDefaults(settings, DefaultHome)

	data, _ := yaml.Marshal(settings)
	return data
}
