// Package config handles configuration loading, parsing, and validation
// from a YAML file and LECTERN_ environment variables. It provides
// type-safe access to the worker's settings, a holder that lets running
// components pick up changes, and a file watcher that reloads the
// configuration when the file is edited.
package config
