package config

import "time"

// Config provides read-only access to application configuration.
// This interface abstracts the configuration source (YAML, ENV, defaults)
// and keeps the app layer free of infrastructure details.
type Config interface {
	// Core settings
	Home() string           // Base directory for loop state (RALPH_HOME)
	AgentType() string      // Backend gateway type (RALPH_AGENT)
	AgentBin() string       // Backend binary path (RALPH_AGENT_BIN)
	TimeoutSec() int        // Invocation timeout in seconds (RALPH_TIMEOUT_SEC)
	Timeout() time.Duration // Invocation timeout as Duration

	// Loop limits
	MaxRetries() int      // Per-story attempt budget (RALPH_MAX_RETRIES)
	MaxIterations() int   // Run-wide iteration cap, 0 unlimited (RALPH_MAX_ITERATIONS)
	LedgerTailSize() int  // Recent attempts fed back as context
	MaxPayloadBytes() int // Context payload cap per iteration

	// Validation and workspace
	ValidationCommand() string // Shell command run after applying mutations (RALPH_VALIDATION_CMD)
	WorkDir() string           // Working tree root (RALPH_WORK_DIR)

	// Behavior flags
	SentinelStopsRun() bool // Completion sentinel terminates the whole run
	DisableLearning() bool  // Skip the SQLite learning store

	// Logging
	StderrLevel() string // Stderr log level (RALPH_STDERR_LEVEL)

	// State file locations, derived from Home
	BacklogPath() string
	LedgerPath() string
	LearningDBPath() string

	// Metadata
	ConfigSource() string // Source of configuration: "yaml", "env", or "default"
	SettingPath() string  // Path to setting.yaml if loaded from file
}

// AppConfig is the concrete implementation of Config.
type AppConfig struct {
	home       string
	agentType  string
	agentBin   string
	timeoutSec int

	maxRetries      int
	maxIterations   int
	ledgerTailSize  int
	maxPayloadBytes int

	validationCommand string
	workDir           string

	sentinelStopsRun bool
	disableLearning  bool

	stderrLevel string

	backlogPath    string
	ledgerPath     string
	learningDBPath string

	configSource string
	settingPath  string
}

// Home returns the base directory for loop state
func (c *AppConfig) Home() string {
	return c.home
}

// AgentType returns the backend gateway type
func (c *AppConfig) AgentType() string {
	return c.agentType
}

// AgentBin returns the backend binary path
func (c *AppConfig) AgentBin() string {
	return c.agentBin
}

// TimeoutSec returns the invocation timeout in seconds
func (c *AppConfig) TimeoutSec() int {
	return c.timeoutSec
}

// Timeout returns the invocation timeout as a Duration
func (c *AppConfig) Timeout() time.Duration {
	return time.Duration(c.timeoutSec) * time.Second
}

// MaxRetries returns the per-story attempt budget
func (c *AppConfig) MaxRetries() int {
	return c.maxRetries
}

// MaxIterations returns the run-wide iteration cap
func (c *AppConfig) MaxIterations() int {
	return c.maxIterations
}

// LedgerTailSize returns how many recent attempts feed the context
func (c *AppConfig) LedgerTailSize() int {
	return c.ledgerTailSize
}

// MaxPayloadBytes returns the context payload cap
func (c *AppConfig) MaxPayloadBytes() int {
	return c.maxPayloadBytes
}

// ValidationCommand returns the post-apply validation command
func (c *AppConfig) ValidationCommand() string {
	return c.validationCommand
}

// WorkDir returns the working tree root
func (c *AppConfig) WorkDir() string {
	return c.workDir
}

// SentinelStopsRun returns whether the sentinel ends the whole run
func (c *AppConfig) SentinelStopsRun() bool {
	return c.sentinelStopsRun
}

// DisableLearning returns whether the learning store is skipped
func (c *AppConfig) DisableLearning() bool {
	return c.disableLearning
}

// StderrLevel returns the stderr log level
func (c *AppConfig) StderrLevel() string {
	return c.stderrLevel
}

// BacklogPath returns the backlog file location
func (c *AppConfig) BacklogPath() string {
	return c.backlogPath
}

// LedgerPath returns the ledger file location
func (c *AppConfig) LedgerPath() string {
	return c.ledgerPath
}

// LearningDBPath returns the learning database location
func (c *AppConfig) LearningDBPath() string {
	return c.learningDBPath
}

// ConfigSource returns the source of configuration
func (c *AppConfig) ConfigSource() string {
	return c.configSource
}

// SettingPath returns the path to setting.yaml if loaded from file
func (c *AppConfig) SettingPath() string {
	return c.settingPath
}

// NewAppConfig creates a new AppConfig with the given values.
// This is typically called by the infrastructure layer after loading and
// merging configuration sources.
func NewAppConfig(
	home, agentType, agentBin string, timeoutSec int,
	maxRetries, maxIterations, ledgerTailSize, maxPayloadBytes int,
	validationCommand, workDir string,
	sentinelStopsRun, disableLearning bool,
	stderrLevel string,
	backlogPath, ledgerPath, learningDBPath string,
	configSource, settingPath string,
) *AppConfig {
	return &AppConfig{
		home:              home,
		agentType:         agentType,
		agentBin:          agentBin,
		timeoutSec:        timeoutSec,
		maxRetries:        maxRetries,
		maxIterations:     maxIterations,
		ledgerTailSize:    ledgerTailSize,
		maxPayloadBytes:   maxPayloadBytes,
		validationCommand: validationCommand,
		workDir:           workDir,
		sentinelStopsRun:  sentinelStopsRun,
		disableLearning:   disableLearning,
		stderrLevel:       stderrLevel,
		backlogPath:       backlogPath,
		ledgerPath:        ledgerPath,
		learningDBPath:    learningDBPath,
		configSource:      configSource,
		settingPath:       settingPath,
	}
}
