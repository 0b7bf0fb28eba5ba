package model

// RunState is the terminal state of a release run
type RunState string

const (
	RunStateSkipped   RunState = "skipped"
	RunStateSucceeded RunState = "succeeded"
	RunStateFailed    RunState = "failed"
)

// RunResult summarizes a finished run
type RunResult struct {
	State   RunState
	Version string // Released version, empty unless computed
	Reason  string // Why the run was skipped or failed
}
