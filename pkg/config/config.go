package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	MetaAPI   MetaAPIConfig   `mapstructure:"metaapi"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Log       LogConfig       `mapstructure:"log"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MetaAPIConfig points the provider client at the MetaApi regional
// endpoints and bounds its lifecycle polling.
type MetaAPIConfig struct {
	ProvisioningURL string        `mapstructure:"provisioning_url"`
	ClientURL       string        `mapstructure:"client_url"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	DeployTimeout   time.Duration `mapstructure:"deploy_timeout"`
	SyncTimeout     time.Duration `mapstructure:"sync_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type RateLimitConfig struct {
	Max      int           `mapstructure:"max"`
	Duration time.Duration `mapstructure:"duration"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads <configName>.yaml from the usual locations and overlays
// GATEWAY_* environment variables.
func Load(configName string) (*Config, error) {
	v := viper.New()

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/metaapi-gateway/")

	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)

	v.SetDefault("metaapi.provisioning_url", "https://mt-provisioning-api-v1.agiliumtrade.agiliumtrade.ai")
	v.SetDefault("metaapi.client_url", "https://mt-client-api-v1.agiliumtrade.agiliumtrade.ai")
	v.SetDefault("metaapi.request_timeout", 30*time.Second)
	v.SetDefault("metaapi.deploy_timeout", 5*time.Minute)
	v.SetDefault("metaapi.sync_timeout", 5*time.Minute)
	v.SetDefault("metaapi.poll_interval", 2*time.Second)

	v.SetDefault("kafka.brokers", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("cors.allow_origins", []string{"*"})

	v.SetDefault("rate_limit.max", 100)
	v.SetDefault("rate_limit.duration", time.Minute)
}
