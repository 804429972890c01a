package config

import (
	"fmt"
	"net"
	"strings"

	"yqhp/benchgrid/pkg/types"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration values.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

// Validate validates the entire configuration and returns any errors.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	v.validateSchedulerConfig(&cfg.Scheduler)
	v.validateWorkerConfig(&cfg.Worker)
	v.validateLoggerConfig(&cfg.Logger)
	v.validateLoggingConfig(&cfg.Logging)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateSchedulerConfig(cfg *SchedulerConfig) {
	if cfg.ListenAddr == "" {
		v.addError("scheduler.listen_addr", "listen address is required")
	} else if !isValidAddress(cfg.ListenAddr) {
		v.addError("scheduler.listen_addr", "invalid address format, expected host:port or :port")
	}

	if cfg.APIAddr != "" && !isValidAddress(cfg.APIAddr) {
		v.addError("scheduler.api_addr", "invalid address format, expected host:port or :port")
	}

	if cfg.LoggerAddr != "" && !isValidAddress(cfg.LoggerAddr) {
		v.addError("scheduler.logger_addr", "invalid address format, expected host:port")
	}

	if !types.PopOrder(cfg.PopOrder).Valid() {
		v.addError("scheduler.pop_order", fmt.Sprintf("invalid pop order '%s', must be one of: lifo, fifo", cfg.PopOrder))
	}

	if cfg.ReadTimeout <= 0 {
		v.addError("scheduler.read_timeout", "read timeout must be positive")
	}

	if cfg.MaxConns <= 0 {
		v.addError("scheduler.max_conns", "max connections must be positive")
	}

	for name, count := range cfg.TaskCounts {
		if !types.TaskType(name).Valid() {
			v.addError("scheduler.task_counts", fmt.Sprintf("unknown task type '%s'", name))
		}
		if count < 0 {
			v.addError("scheduler.task_counts", fmt.Sprintf("count for '%s' must be non-negative", name))
		}
	}
}

func (v *Validator) validateWorkerConfig(cfg *WorkerConfig) {
	if cfg.SchedulerAddr == "" {
		v.addError("worker.scheduler_addr", "scheduler address is required")
	} else if !isValidAddress(cfg.SchedulerAddr) {
		v.addError("worker.scheduler_addr", "invalid address format, expected host:port")
	}

	if cfg.LoggerAddr != "" && !isValidAddress(cfg.LoggerAddr) {
		v.addError("worker.logger_addr", "invalid address format, expected host:port")
	}

	if cfg.DialTimeout <= 0 {
		v.addError("worker.dial_timeout", "dial timeout must be positive")
	}
}

func (v *Validator) validateLoggerConfig(cfg *LoggerConfig) {
	if cfg.ListenAddr == "" {
		v.addError("logger.listen_addr", "listen address is required")
	} else if !isValidAddress(cfg.ListenAddr) {
		v.addError("logger.listen_addr", "invalid address format, expected host:port or :port")
	}

	if cfg.APIAddr != "" && !isValidAddress(cfg.APIAddr) {
		v.addError("logger.api_addr", "invalid address format, expected host:port or :port")
	}

	if cfg.ExportDir == "" {
		v.addError("logger.export_dir", "export directory is required")
	}

	if cfg.ReadTimeout <= 0 {
		v.addError("logger.read_timeout", "read timeout must be positive")
	}

	if cfg.MaxConns <= 0 {
		v.addError("logger.max_conns", "max connections must be positive")
	}
}

func (v *Validator) validateLoggingConfig(cfg *LoggingConfig) {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if cfg.Level == "" {
		v.addError("logging.level", "log level is required")
	} else if !validLevels[strings.ToLower(cfg.Level)] {
		v.addError("logging.level", fmt.Sprintf("invalid log level '%s', must be one of: debug, info, warn, error", cfg.Level))
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}
	if cfg.Format == "" {
		v.addError("logging.format", "log format is required")
	} else if !validFormats[strings.ToLower(cfg.Format)] {
		v.addError("logging.format", fmt.Sprintf("invalid log format '%s', must be one of: json, console", cfg.Format))
	}

	validOutputs := map[string]bool{
		"stdout": true,
		"file":   true,
		"both":   true,
	}
	if cfg.Output != "" && !validOutputs[strings.ToLower(cfg.Output)] {
		v.addError("logging.output", fmt.Sprintf("invalid log output '%s', must be one of: stdout, file, both", cfg.Output))
	}

	if (cfg.Output == "file" || cfg.Output == "both") && cfg.FilePath == "" {
		v.addError("logging.file_path", "file path is required when output includes file")
	}
}

// isValidAddress checks if the address is a valid host:port format.
func isValidAddress(addr string) bool {
	if addr == "" {
		return false
	}

	if strings.HasPrefix(addr, ":") {
		port := strings.TrimPrefix(addr, ":")
		if port == "" {
			return false
		}
		_, err := net.LookupPort("tcp", port)
		return err == nil
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}

	if port == "" {
		return false
	}
	if _, err := net.LookupPort("tcp", port); err != nil {
		return false
	}

	if host != "" {
		if ip := net.ParseIP(host); ip == nil {
			if !isValidHostname(host) {
				return false
			}
		}
	}

	return true
}

// isValidHostname performs basic hostname validation.
func isValidHostname(hostname string) bool {
	if len(hostname) == 0 || len(hostname) > 253 {
		return false
	}

	labels := strings.Split(hostname, ".")
	for _, label := range labels {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if !isAlphanumeric(label[0]) || !isAlphanumeric(label[len(label)-1]) {
			return false
		}
		for _, c := range label {
			if !isAlphanumeric(byte(c)) && c != '-' {
				return false
			}
		}
	}

	return true
}

func isAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	return NewValidator().Validate(c)
}

// MustValidate validates the configuration and panics if validation fails.
// Useful for startup validation.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("configuration validation failed: %v", err))
	}
}

// LoadAndValidate loads configuration from a file and validates it.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
