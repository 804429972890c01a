package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for the benchgrid services.
type Config struct {
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Worker    WorkerConfig    `yaml:"worker"`
	Logger    LoggerConfig    `yaml:"logger"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SchedulerConfig holds scheduler service configuration.
type SchedulerConfig struct {
	ListenAddr  string         `yaml:"listen_addr" env:"BG_SCHEDULER_LISTEN_ADDR"`
	APIAddr     string         `yaml:"api_addr" env:"BG_SCHEDULER_API_ADDR"`
	Hostname    string         `yaml:"hostname" env:"BG_SCHEDULER_HOSTNAME"`
	LoggerAddr  string         `yaml:"logger_addr" env:"BG_SCHEDULER_LOGGER_ADDR"`
	PopOrder    string         `yaml:"pop_order" env:"BG_SCHEDULER_POP_ORDER"`
	ReadTimeout time.Duration  `yaml:"read_timeout" env:"BG_SCHEDULER_READ_TIMEOUT"`
	MaxConns    int            `yaml:"max_conns" env:"BG_SCHEDULER_MAX_CONNS"`
	TaskCounts  map[string]int `yaml:"task_counts"`
	ShuffleSeed int64          `yaml:"shuffle_seed" env:"BG_SCHEDULER_SHUFFLE_SEED"`
}

// WorkerConfig holds worker node configuration.
type WorkerConfig struct {
	SchedulerAddr string        `yaml:"scheduler_addr" env:"BG_WORKER_SCHEDULER_ADDR"`
	LoggerAddr    string        `yaml:"logger_addr" env:"BG_WORKER_LOGGER_ADDR"`
	Hostname      string        `yaml:"hostname" env:"BG_WORKER_HOSTNAME"`
	DialTimeout   time.Duration `yaml:"dial_timeout" env:"BG_WORKER_DIAL_TIMEOUT"`
	IOFile        string        `yaml:"io_file" env:"BG_WORKER_IO_FILE"`
}

// LoggerConfig holds event logger service configuration.
type LoggerConfig struct {
	ListenAddr  string        `yaml:"listen_addr" env:"BG_LOGGER_LISTEN_ADDR"`
	APIAddr     string        `yaml:"api_addr" env:"BG_LOGGER_API_ADDR"`
	ExportDir   string        `yaml:"export_dir" env:"BG_LOGGER_EXPORT_DIR"`
	ReadTimeout time.Duration `yaml:"read_timeout" env:"BG_LOGGER_READ_TIMEOUT"`
	MaxConns    int           `yaml:"max_conns" env:"BG_LOGGER_MAX_CONNS"`
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"BG_LOG_LEVEL"`
	Format     string `yaml:"format" env:"BG_LOG_FORMAT"`
	Output     string `yaml:"output" env:"BG_LOG_OUTPUT"`
	FilePath   string `yaml:"file_path" env:"BG_LOG_FILE_PATH"`
	MaxSize    int    `yaml:"max_size" env:"BG_LOG_MAX_SIZE"`
	MaxBackups int    `yaml:"max_backups" env:"BG_LOG_MAX_BACKUPS"`
	MaxAge     int    `yaml:"max_age" env:"BG_LOG_MAX_AGE"`
}

// DefaultTaskCounts returns the stock benchmark pool: 3 array sorts, 2 file
// I/O runs, 3 matrix multiplies and 5 prime counts.
func DefaultTaskCounts() map[string]int {
	return map[string]int{
		"array":  3,
		"fileIO": 2,
		"matmul": 3,
		"primes": 5,
	}
}

// SeedCounts returns the configured per-type task counts, falling back to
// the stock pool when none are configured. TaskCounts carries no default so
// a YAML mapping replaces the pool instead of merging into it.
func (c *SchedulerConfig) SeedCounts() map[string]int {
	if len(c.TaskCounts) > 0 {
		return c.TaskCounts
	}
	return DefaultTaskCounts()
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			ListenAddr:  ":5000",
			APIAddr:     ":8080",
			LoggerAddr:  "127.0.0.1:5001",
			PopOrder:    "lifo",
			ReadTimeout: 10 * time.Second,
			MaxConns:    256,
			ShuffleSeed: 0,
		},
		Worker: WorkerConfig{
			SchedulerAddr: "127.0.0.1:5000",
			LoggerAddr:    "127.0.0.1:5001",
			DialTimeout:   5 * time.Second,
		},
		Logger: LoggerConfig{
			ListenAddr:  ":5001",
			APIAddr:     ":8081",
			ExportDir:   "logs",
			ReadTimeout: 10 * time.Second,
			MaxConns:    512,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
	}
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
	envPrefix  string
	cmdArgs    map[string]string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		envPrefix: "BG_",
		cmdArgs:   make(map[string]string),
	}
}

// WithConfigPath sets the path to the YAML configuration file.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the prefix for environment variables.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithCmdArgs sets command-line arguments for configuration override.
func (l *Loader) WithCmdArgs(args map[string]string) *Loader {
	l.cmdArgs = args
	return l
}

// Load loads configuration from all sources with proper precedence:
// defaults < YAML file < environment variables < command-line flags
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := l.applyCmdOverrides(cfg); err != nil {
		return nil, fmt.Errorf("apply flag overrides: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file. A missing file is not
// an error; the defaults stay in effect.
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", l.configPath, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", l.configPath, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	return l.applyEnvToStruct(reflect.ValueOf(cfg).Elem())
}

// applyEnvToStruct recursively applies environment variables to struct fields.
func (l *Loader) applyEnvToStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := l.applyEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("set %s from %s: %w", fieldType.Name, envTag, err)
		}
	}

	return nil
}

// applyCmdOverrides applies command-line argument overrides to the configuration.
func (l *Loader) applyCmdOverrides(cfg *Config) error {
	for key, value := range l.cmdArgs {
		if err := l.setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a configuration value by dot-notation path, e.g.
// "scheduler.pop_order".
func (l *Loader) setConfigValue(cfg *Config, path, value string) error {
	parts := strings.Split(path, ".")
	v := reflect.ValueOf(cfg).Elem()

	for i, part := range parts {
		fieldName := strings.ReplaceAll(part, "_", "")

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName) || strings.EqualFold(name, part)
		})

		if !field.IsValid() {
			return fmt.Errorf("unknown config path: %s", path)
		}

		if i == len(parts)-1 {
			return setFieldValue(field, value)
		}

		if field.Kind() != reflect.Struct {
			return fmt.Errorf("expected %s to be a section, got %s", part, field.Kind())
		}
		v = field
	}

	return nil
}

// setFieldValue sets a reflect.Value from a string value.
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// time.Duration is an int64 with its own syntax.
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid unsigned integer: %w", err)
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float: %w", err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	case reflect.Map:
		switch {
		case field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.String:
			m := make(map[string]string)
			for _, pair := range strings.Split(value, ",") {
				kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
				if len(kv) == 2 {
					m[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
				}
			}
			field.Set(reflect.ValueOf(m))

		case field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.Int:
			m := make(map[string]int)
			for _, pair := range strings.Split(value, ",") {
				kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
				if len(kv) != 2 {
					continue
				}
				n, err := strconv.Atoi(strings.TrimSpace(kv[1]))
				if err != nil {
					return fmt.Errorf("invalid count for %q: %w", kv[0], err)
				}
				m[strings.TrimSpace(kv[0])] = n
			}
			field.Set(reflect.ValueOf(m))

		default:
			return fmt.Errorf("unsupported map type")
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Serialize serializes the configuration to YAML bytes.
func (c *Config) Serialize() ([]byte, error) {
	return yaml.Marshal(c)
}

// ParseConfig parses a YAML configuration from bytes on top of the defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file path.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader().WithConfigPath(path).Load()
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	data, _ := c.Serialize()
	clone, _ := ParseConfig(data)
	return clone
}
