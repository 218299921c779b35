// Package filesystem discovers, reads and watches local source files.
//
// Scanner walks a folder tree in lexical order and skips hidden entries.
// Reads are retried while a file is locked, which happens when a download
// or editor still holds it. Watcher wraps fsnotify and reports create,
// modify and delete events for every sub-directory, including ones created
// after watching started.
package filesystem
