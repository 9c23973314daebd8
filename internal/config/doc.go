// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config file. It provides
// type-safe access to client settings while keeping configuration details
// separate from the analysis workflow.
package config
