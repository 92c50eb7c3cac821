package providers

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"lrd/internal/structures"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "LRD_LOG_LEVEL")
	viper.BindEnv("persistence.saveInterval", "LRD_SAVE_INTERVAL")
	viper.BindEnv("cache.enabled", "LRD_CACHE_ENABLED")
	viper.BindEnv("cache.size", "LRD_CACHE_SIZE")
	viper.BindEnv("engine.baseRate", "LRD_BASE_RATE")
	viper.BindEnv("engine.dailyCap", "LRD_DAILY_CAP")

	// Engine tunables default to the product values; config only overrides.
	viper.SetDefault("engine.baseRate", 0.1)
	viper.SetDefault("engine.accrualInterval", time.Second)
	viper.SetDefault("engine.maintenanceInterval", time.Minute)
	viper.SetDefault("engine.dailyCap", 100.0)
	viper.SetDefault("engine.claimWindow", 24*time.Hour)
	viper.SetDefault("engine.verifyThreshold", 10.0)
	viper.SetDefault("engine.stakeMinimum", 10.0)
	viper.SetDefault("engine.stakeGateAmount", 50.0)
	viper.SetDefault("engine.sessionLogSize", 100)
	viper.SetDefault("engine.idleTTL", 30*time.Minute)
	viper.SetDefault("settlement.queueSize", 256)
	viper.SetDefault("settlement.maxRetryElapsed", 15*time.Minute)

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "ListenRewardsDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
