package analyzer

import "fmt"

// Stage names the part of an analysis that failed.
type Stage string

const (
	StageResolve    Stage = "resolve"
	StageParse      Stage = "parse"
	StageIntrospect Stage = "introspect"
	StageMerge      Stage = "merge"
)

// AnalysisError is the single error shape returned by Analyze. Err holds the
// underlying cause, such as *introspect.NotFoundError or
// *parser.FileReadError.
type AnalysisError struct {
	Target string
	Stage  Stage
	Err    error
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analyzing %s: %s: %v", e.Target, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// guard runs fn and converts both returned errors and panics into an
// *AnalysisError for target.
func guard(target string, stage Stage, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &AnalysisError{Target: target, Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := fn(); err != nil {
		return &AnalysisError{Target: target, Stage: stage, Err: err}
	}
	return nil
}
