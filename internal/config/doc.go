// Package config manages configuration for the benchgrid services. Values
// are loaded from a YAML file, environment variables and command-line
// arguments, with precedence: defaults < YAML file < env vars < flags.
package config
