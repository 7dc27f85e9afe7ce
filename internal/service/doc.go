// Package service implements the watch mode of golinter.
//
// Overview
// The Supervisor owns an event loop fed by three sources: filesystem events of
// the watched workspace (fsnotify), explicit Start calls and an optional
// schedule (gocron). Each trigger becomes a lint run executed by a Linter in
// its own goroutine; a newer run supersedes the older one inside the Linter,
// so the Supervisor never waits for a run before starting the next.
//
// Data flow:
//
//	fsnotify / Start / gocron
//	      |
//	  Supervisor.Do ---- debounce ----> run(target) ----> Linter.Lint
//	      |                                                  |
//	      |<---------------- Report (not when cancelled) ----|
//	      |
//	  uploaders (writer, directory, repository)
//
// Invariants:
//   - Writes to *.go files are debounced; one changed file is linted alone,
//     several changed files within the window lint the whole workspace.
//   - Removed files and go.mod changes lint the whole workspace.
//   - Reports of cancelled runs are dropped.
//   - Uploaders are called from the event loop only.
package service
