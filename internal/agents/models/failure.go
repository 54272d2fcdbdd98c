package models

import "fmt"

// Kind separates failures that degrade to a placeholder from failures that
// must reach the caller.
type Kind int

const (
	// KindFallback failures are recovered with a manual-review placeholder.
	KindFallback Kind = iota + 1
	// KindHardFail failures abort the pipeline with an error.
	KindHardFail
)

func (k Kind) String() string {
	switch k {
	case KindFallback:
		return "fallback"
	case KindHardFail:
		return "hard_fail"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Stage is the pipeline step at which an attempt failed.
type Stage string

const (
	StageRequest    Stage = "request"
	StageEmpty      Stage = "empty_response"
	StageExtract    Stage = "extract"
	StageDecode     Stage = "decode"
	StageCompliance Stage = "compliance"
	StageSchema     Stage = "schema"
)

// Failure is the classified outcome of a failed generation attempt.
type Failure struct {
	Kind  Kind
	Stage Stage
	Err   error
}

func Fallback(stage Stage, err error) *Failure {
	return &Failure{Kind: KindFallback, Stage: stage, Err: err}
}

func HardFail(stage Stage, err error) *Failure {
	return &Failure{Kind: KindHardFail, Stage: stage, Err: err}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }
