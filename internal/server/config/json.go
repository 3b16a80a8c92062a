package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/taskhub/internal/flagx"
	"github.com/dmitrijs2005/taskhub/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept both "15m"
// and integer nanoseconds; pointer fields distinguish "absent" from zero.
type JsonConfig struct {
	EndpointAddrHTTP             string          `json:"endpoint_addr_http"`
	EndpointAddrGRPC             string          `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string          `json:"database_dsn"`
	SecretKey                    string          `json:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	AnonThrottleRate             string          `json:"anon_throttle_rate"`
	UserThrottleRate             string          `json:"user_throttle_rate"`
	PasswordMinLength            *int            `json:"password_min_length"`
	LogLevel                     string          `json:"log_level"`
	RunMigrations                *bool           `json:"run_migrations"`
}

// parseJson overlays values from the JSON file named by -c/-config onto
// config. Keys missing from the file leave the current values untouched.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.AnonThrottleRate, c.AnonThrottleRate)
	setString(&config.UserThrottleRate, c.UserThrottleRate)
	setString(&config.LogLevel, c.LogLevel)

	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.PasswordMinLength != nil {
		config.PasswordMinLength = *c.PasswordMinLength
	}
	if c.RunMigrations != nil {
		config.RunMigrations = *c.RunMigrations
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
