// Package driving declares what the CLI asks of the core: settings,
// storage synchronisation and CSV transfer. internal/core/services
// provides the implementations.
package driving
