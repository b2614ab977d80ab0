// Package config defines the YAML configuration surface for the
// storage engine: tier retention windows, the encryption flag, the
// classification label order and default, export policy, and the
// auxiliary-log retention map.
//
// Load layers file values over Default() and validates the result, so
// a minimal config file only needs baseDir.
package config
