// Package config loads observer configuration.
//
// Two entry points exist: typed Settings parsed from environment variables
// (the usual path for deployed observers), and a generic map-backed Config
// with lenient accessors for programs that carry their settings in YAML or
// JSON files. Settings can be derived from either.
package config
