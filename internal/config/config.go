package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Seed           int64   `mapstructure:"seed"`
	ProjectTonnage int64   `mapstructure:"project_tonnage" validate:"gt=0"`
	Families       int     `mapstructure:"families" validate:"gt=0"`
	Location       string  `mapstructure:"location" validate:"required"`
	Methodology    string  `mapstructure:"methodology" validate:"required"`
	TokenPriceUSD  float64 `mapstructure:"token_price_usd" validate:"gte=0"`

	Port             int    `mapstructure:"port" validate:"omitempty,gt=0,lte=65535"`
	MetricsAuthToken string `mapstructure:"metrics_auth_token"`
	AdminUser        string `mapstructure:"admin_user" validate:"required_with=AdminPassword"`
	AdminPassword    string `mapstructure:"admin_password" validate:"required_with=AdminUser"`
}

// SetDefaults registers the pilot project's defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("seed", 42)
	v.SetDefault("project_tonnage", 1000)
	v.SetDefault("families", 127)
	v.SetDefault("location", "San Martín, Peru")
	v.SetDefault("methodology", "VCS VM0044")
	v.SetDefault("token_price_usd", 75)
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
