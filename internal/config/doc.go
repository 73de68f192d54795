// Package config loads and validates the onioncrawl configuration.
//
// Values are layered: NewConfig defaults, then a YAML file (LoadFile), then
// environment variables (ApplyEnv), then command line flags applied by the
// caller. Validate reports the first invalid value as a sentinel error.
package config
