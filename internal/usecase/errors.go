package usecase

import (
	"errors"
	"fmt"
)

// Stage names one step of the transcode pipeline.
type Stage string

const (
	StageFetch      Stage = "fetch"
	StageValidate   Stage = "validate"
	StageEncode     Stage = "encode"
	StageSynthesize Stage = "synthesize"
	StageUpload     Stage = "upload"
	StageNotify     Stage = "notify"
	StageCleanup    Stage = "cleanup"
)

// StageError is the terminal error of a pipeline invocation.
// The wrapped error keeps its own type, so *model.ValidationError and
// *transcoder.EncodeError remain reachable through errors.As.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage recorded in err, or "unknown" if err did not come
// from the pipeline.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return "unknown"
}

// IsStage reports whether err is a pipeline failure in the given stage.
func IsStage(err error, stage Stage) bool {
	var se *StageError
	return errors.As(err, &se) && se.Stage == stage
}
