// Package runner executes lint tools and turns their output into findings.
//
// Runner is a thin, opinionated wrapper around os/exec:
//   - looks the tool up in the PATH of the invocation environment
//   - starts the process in the requested directory and environment
//   - captures stdout and stderr
//   - optionally forwards stderr lines to a callback
//   - parses file:line[:col]: message lines into model.Finding values
//
// Cancelling the context kills the process, on unix the whole process group,
// and the caller then gets an *ExecutionError of KindCancelled. Output pipes
// are closed at most WaitDelay after the kill.
//
// A non-zero exit code is not an error as long as the tool produced parseable
// diagnostics, because most linters exit with 1 when they report something.
package runner
