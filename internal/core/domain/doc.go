// Package domain holds the contact tracker's entities and the rules that
// need no I/O: Contact, Meeting and Todo, the tag Options, FileRef, the
// folder layout and its filenames, IndexEntry, settings and sentinel errors.
//
// It imports only the standard library and is imported by every other
// package.
package domain
