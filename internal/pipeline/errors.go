package pipeline

import "fmt"

// Stage identifies one unit of the attribution pipeline.
type Stage string

const (
	StageDescribe   Stage = "describe"
	StageMatch      Stage = "match"
	StageSelect     Stage = "select"
	StageConfidence Stage = "confidence"
)

// StageError is a fatal transport/invocation failure raised by a stage. It
// aborts the pipeline; recoverable parse failures never produce one.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageFailed(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
