// Package services holds the contact tracker's core logic.
//
// Repository is the in-memory model of contacts, meetings and tag options.
// StorageService maps it onto the folder layout of a driven.ObjectStore and
// keeps the index files current. Workspace ties the two together for one
// invocation and falls back to the snapshot cache when offline.
//
// Services are pure Go with no CGO.
package services
