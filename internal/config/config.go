package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
	Printer  PrinterConfig  `mapstructure:"printer"  validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
	BcryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=0,lte=31"`
}

// TaskConfig contains the scheduler and archival policy settings.
type TaskConfig struct {
	// SchedulerInterval is how often the maintenance tick fires.
	SchedulerInterval time.Duration `mapstructure:"scheduler_interval" validate:"required,min=1s"`

	// ArchivalRetention is how long a task must remain done before the
	// scheduler archives it.
	ArchivalRetention time.Duration `mapstructure:"archival_retention" validate:"required,min=1m"`

	// DueSoonWindow is how far ahead the due pass looks when selecting
	// tasks to print and auto-start.
	DueSoonWindow time.Duration `mapstructure:"due_soon_window" validate:"required,min=1m"`

	// ShutdownGracePeriod bounds how long Stop waits for an in-flight tick.
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period" validate:"required,min=1s"`
}

// PrinterConfig selects and parameterizes the print backend.
type PrinterConfig struct {
	// Backend selects the output variant: "pdf" writes ticket files,
	// "usb" drives an attached thermal printer.
	Backend string `mapstructure:"backend" validate:"required,oneof=pdf usb"`

	// OutputDir is where the pdf backend writes ticket files.
	OutputDir string `mapstructure:"output_dir" validate:"required_if=Backend pdf"`

	// VendorID/ProductID address the usb backend's device.
	VendorID  uint16 `mapstructure:"vendor_id"`
	ProductID uint16 `mapstructure:"product_id"`

	// FrontendURL is the base URL encoded into ticket QR codes.
	FrontendURL string `mapstructure:"frontend_url" validate:"required,url"`
}
