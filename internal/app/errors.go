// internal/app/errors.go
package app

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthorized = errors.New("performing user is not authorized as the operator")
	ErrAlreadyPaused = errors.New("agent is already paused")
	ErrNotPaused     = errors.New("agent is not paused")
)

// Stage names a step of the posting pipeline.
type Stage string

const (
	StageRetrieve Stage = "retrieve"
	StageQueue    Stage = "queue"
	StageGenerate Stage = "generate"
	StageScore    Stage = "score"
	StagePost     Stage = "post"
	StageStore    Stage = "store"
)

// PipelineError reports which pipeline stage failed.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s stage failed: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, err error) error {
	return &PipelineError{Stage: stage, Err: err}
}
