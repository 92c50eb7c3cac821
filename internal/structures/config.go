package structures

import (
	"net/http"
	"time"
)

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type Persistence struct {
	FilePath     string        `yaml:"filePath" validate:"required|unixPath"`
	SaveInterval time.Duration `yaml:"saveInterval" validate:"required|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

// EngineConfig holds the reward-engine tunables. All fields have viper
// defaults, so a config file only needs to override what differs.
type EngineConfig struct {
	BaseRate            float64       `yaml:"baseRate"`
	AccrualInterval     time.Duration `yaml:"accrualInterval"`
	MaintenanceInterval time.Duration `yaml:"maintenanceInterval"`
	DailyCap            float64       `yaml:"dailyCap"`
	ClaimWindow         time.Duration `yaml:"claimWindow"`
	VerifyThreshold     float64       `yaml:"verifyThreshold"`
	StakeMinimum        float64       `yaml:"stakeMinimum"`
	StakeGateAmount     float64       `yaml:"stakeGateAmount"`
	SessionLogSize      int           `yaml:"sessionLogSize"`
	IdleTTL             time.Duration `yaml:"idleTTL"`
	ColdStorageDir      string        `yaml:"coldStorageDir"`
}

type SettlementConfig struct {
	QueueSize       int           `yaml:"queueSize"`
	MaxRetryElapsed time.Duration `yaml:"maxRetryElapsed"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	Engine      EngineConfig     `yaml:"engine"`
	Settlement  SettlementConfig `yaml:"settlement"`
	WebServer   Server           `yaml:"webServer"`
	Persistence Persistence      `yaml:"persistence"`
	Logger      LoggerConfig     `yaml:"logger"`
	Cache       CacheConfig      `yaml:"cache"`
	Metrics     MetricsConfig    `yaml:"metrics"`
}

type CliFlags struct {
	ConfigPath string
	DebugMode  bool
}

type Route struct {
	Url     string
	Handler http.Handler
}
