package pipeline

import (
	"errors"
	"fmt"
)

// StageName identifies the pipeline stage that produced a result or failure.
type StageName string

// Pipeline stage names in execution order, plus the terminal sink step.
const (
	StageValidate  StageName = "validate"
	StageTransform StageName = "transform"
	StageEnrich    StageName = "enrich"
	StageSink      StageName = "sink"
)

// Stage failure sentinels. Every stage error wraps exactly one of these so
// callers can classify failures with errors.Is without inspecting messages.
var (
	// ErrValidation marks schema, required-field, or type violations.
	ErrValidation = errors.New("validation failed")
	// ErrTransform marks transform stage failures.
	ErrTransform = errors.New("transform failed")
	// ErrEnrich marks enrichment stage failures.
	ErrEnrich = errors.New("enrichment failed")
	// ErrSink marks downstream publish or warehouse load failures.
	ErrSink = errors.New("sink write failed")
)

// StageError carries the stage and record identity alongside the cause.
// Stages return it as their only error type; a nil Record accompanies it.
type StageError struct {
	Stage    StageName
	RecordID string
	Err      error
}

// NewStageError builds a StageError for the given stage and record.
func NewStageError(stage StageName, recordID string, err error) *StageError {
	return &StageError{Stage: stage, RecordID: recordID, Err: err}
}

func (e *StageError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s stage: record %s: %v", e.Stage, e.RecordID, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err originated in the validate stage.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsTransform reports whether err originated in the transform stage.
func IsTransform(err error) bool {
	return errors.Is(err, ErrTransform)
}

// IsEnrich reports whether err originated in the enrich stage.
func IsEnrich(err error) bool {
	return errors.Is(err, ErrEnrich)
}

// IsSink reports whether err originated in the dual-publish sink step.
func IsSink(err error) bool {
	return errors.Is(err, ErrSink)
}

// stageFailure wraps a cause for the record currently in flight.
func stageFailure(stage StageName, r Record, err error) error {
	var id string
	if r != nil {
		id = r.ID()
	}
	return &StageError{Stage: stage, RecordID: id, Err: err}
}
