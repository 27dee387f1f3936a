// ABOUTME: Configuration package for the translation client
// ABOUTME: Documents the precedence of defaults, file, environment and flags
// Package config loads livetranslate settings.
//
// Values are merged in increasing precedence: built-in defaults, a YAML file
// (livetranslate.yaml in the working directory or the user config directory),
// LIVETRANSLATE_* environment variables and command line flags bound by the
// CLI.
package config
