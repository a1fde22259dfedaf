package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/commissions/internal/flagx"
	"github.com/dmitrijs2005/commissions/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Durations accept
// both "72h" strings and integer nanoseconds. Zero values leave the current
// setting untouched.
type FileConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN                 string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                   string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	S3RootUser                  string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                    string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	RedisAddr                   string         `json:"redis_addr" yaml:"redis_addr"`
	LogFormat                   string         `json:"log_format" yaml:"log_format"`
	AdminUserIDs                []string       `json:"admin_user_ids" yaml:"admin_user_ids"`
	ReviewWindow                timex.Duration `json:"review_window" yaml:"review_window"`
	CounterWindow               timex.Duration `json:"counter_window" yaml:"counter_window"`
	GraceWindow                 timex.Duration `json:"grace_window" yaml:"grace_window"`
	TicketResponseWindow        timex.Duration `json:"ticket_response_window" yaml:"ticket_response_window"`
	PaymentWindow               timex.Duration `json:"payment_window" yaml:"payment_window"`
	AllowConcurrentResolutions  *bool          `json:"allow_concurrent_resolutions" yaml:"allow_concurrent_resolutions"`
	LapsePolicy                 string         `json:"lapse_policy" yaml:"lapse_policy"`
}

// decodeFile reads path in the given format.
func decodeFile(path string, format flagx.ConfigFormat) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := &FileConfig{}
	if format == flagx.FormatYAML {
		err = yaml.Unmarshal(data, c)
	} else {
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}

// apply copies every non-zero field of f into config.
func (f *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, f.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, f.DatabaseDSN)
	setString(&config.SecretKey, f.SecretKey)
	setString(&config.S3RootUser, f.S3RootUser)
	setString(&config.S3RootPassword, f.S3RootPassword)
	setString(&config.S3Bucket, f.S3Bucket)
	setString(&config.S3Region, f.S3Region)
	setString(&config.S3BaseEndpoint, f.S3BaseEndpoint)
	setString(&config.RedisAddr, f.RedisAddr)
	setString(&config.LogFormat, f.LogFormat)
	setString(&config.LapsePolicy, f.LapsePolicy)

	setDuration(&config.AccessTokenValidityDuration, f.AccessTokenValidityDuration)
	setDuration(&config.ReviewWindow, f.ReviewWindow)
	setDuration(&config.CounterWindow, f.CounterWindow)
	setDuration(&config.GraceWindow, f.GraceWindow)
	setDuration(&config.TicketResponseWindow, f.TicketResponseWindow)
	setDuration(&config.PaymentWindow, f.PaymentWindow)

	if len(f.AdminUserIDs) > 0 {
		config.AdminUserIDs = append([]string(nil), f.AdminUserIDs...)
	}
	if f.AllowConcurrentResolutions != nil {
		config.AllowConcurrentResolutions = *f.AllowConcurrentResolutions
	}
}

// parseFile loads the file named by -c/-config, if any, and overlays it on
// config. An unreadable or malformed file panics, as do bad flags.
func parseFile(config *Config) {
	path, format := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	c, err := decodeFile(path, format)
	if err != nil {
		panic(err)
	}
	c.apply(config)
}

// LoadFile builds a validated Config from the defaults and the file at path.
// Command-line flags are not consulted; tools with their own flag handling
// use it. An empty path yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path != "" {
		c, err := decodeFile(path, flagx.FormatOf(path))
		if err != nil {
			return nil, err
		}
		c.apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
