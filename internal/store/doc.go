// Package store defines the persistence contract for lessons and the
// transaction helper shared by every SQL-backed store. Implementations
// live under internal/platform.
package store
