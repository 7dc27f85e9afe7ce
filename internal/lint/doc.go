// Package lint runs a configured lint tool against a file or a whole workspace.
//
// An Orchestrator allows a single authoritative run at a time. Starting a new
// run cancels the context of the previous one and does not wait for it: the
// cancelled caller gets whatever error its ProcessRunner returns for a
// cancelled execution, while the new run proceeds immediately.
//
//	Lint(a) ---- running(epoch 1) ------x cancelled
//	Lint(b)           `-- cancel(1) -- running(epoch 2) ---- idle
//
// Run-state transitions:
//   - Idle -> Running: Lint is called
//   - Running -> Running: Lint is called again, the previous epoch is cancelled
//   - Running -> Idle: the run of the current epoch returns
//
// Completion of a superseded epoch never changes the state, so the
// Orchestrator is idle once the most recent run returns, regardless of the
// order in which the runs finish.
//
// Argument construction for a run:
//   - --json is dropped, the output is parsed as text
//   - --config=X becomes --config=resolve(X)
//   - gometalinter gets --aggregate unless already present, and its GOPATH
//     is extended with lint.toolsGopath
//   - workspace runs end with ./...
package lint
