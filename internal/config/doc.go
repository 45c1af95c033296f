// Package config loads dashfeed configuration from YAML.
//
// ${VAR} references are expanded from the environment before parsing, so
// credentials can stay out of the file:
//
//	api:
//	  api_key: ${BINANCE_API_KEY}
//	  secret_key: ${BINANCE_SECRET_KEY}
//
// Use LoadAndValidate in binaries; Load and LoadWithDefaults exist for
// tests and tooling.
package config
