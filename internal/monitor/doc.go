// Package monitor watches a directory tree and re-runs the directory pass
// whenever a file appears.
//
// Every directory under the root is added to an fsnotify watcher. A single
// goroutine consumes the watcher's event channel and handles each creation
// event synchronously: new directories are added to the watch set, new files
// trigger a pass over their parent directory. Events are never coalesced.
package monitor
