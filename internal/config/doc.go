// Package config loads the layered server configuration.
package config
