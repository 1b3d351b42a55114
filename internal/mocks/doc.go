// Package mocks provides configurable test doubles for the interfaces the
// worker depends on at its outer boundaries.
package mocks
