package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from config files and use
// the TASKWARD_ prefix with underscores for nesting (e.g. TASKWARD_SERVER_PORT).
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; the environment may carry
		// everything we need.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("TASKWARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers the default value for every option that has one.
// Secrets and connection strings deliberately have no default.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	// Registered with empty defaults so viper binds their environment
	// variables during Unmarshal; validation rejects them when left unset.
	v.SetDefault("database.url", "")
	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 10080) // 7 days
	v.SetDefault("auth.bcrypt_cost", 0)                        // 0 means bcrypt.DefaultCost

	v.SetDefault("task.scheduler_interval", "1h")
	v.SetDefault("task.archival_retention", "168h") // 7 days
	v.SetDefault("task.due_soon_window", "6h")
	v.SetDefault("task.shutdown_grace_period", "10s")

	v.SetDefault("printer.backend", "pdf")
	v.SetDefault("printer.output_dir", "output/pdf")
	v.SetDefault("printer.vendor_id", 0x28E9)
	v.SetDefault("printer.product_id", 0x0289)
	v.SetDefault("printer.frontend_url", "http://localhost:4200")
}

// validate runs struct validation and converts the first failure into a
// readable error naming the offending field.
func validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			first := validationErrors[0]
			return fmt.Errorf(
				"invalid configuration: field %s failed on the %q rule",
				first.Namespace(),
				first.Tag(),
			)
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
