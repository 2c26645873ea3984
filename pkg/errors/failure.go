package errors

import "fmt"

// Stage names the step of a mirror run that produced a fatal failure.
type Stage string

// Stages at which a run can fail.
const (
	StageValidate  Stage = "validate"
	StageFetchRoot Stage = "fetch-root"
	StageParse     Stage = "parse"
	StageWrite     Stage = "write"
)

// Failure is the single error value returned for a fatal run outcome.
type Failure struct {
	Stage  Stage
	Detail string
	Err    error
}

// NewFailure builds a Failure for the given stage.
func NewFailure(stage Stage, err error, format string, args ...any) *Failure {
	return &Failure{
		Stage:  stage,
		Detail: fmt.Sprintf(format, args...),
		Err:    err,
	}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Stage, f.Detail)
	}
	return fmt.Sprintf("%s: %s: %v", f.Stage, f.Detail, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// StageOf returns the stage of the first Failure in err's chain, or "" if none.
func StageOf(err error) Stage {
	var f *Failure
	if As(err, &f) {
		return f.Stage
	}
	return ""
}
