package training

import (
	"errors"
	"fmt"
)

type Phase string

const (
	PhaseLoad     Phase = "load"
	PhaseClean    Phase = "clean"
	PhaseEncode   Phase = "encode"
	PhaseFit      Phase = "fit"
	PhaseEvaluate Phase = "evaluate"
	PhasePersist  Phase = "persist"
)

var (
	ErrEmptyColumn        = errors.New("column has no values")
	ErrTargetNotBinary    = errors.New("target must have exactly two classes")
	ErrTooFewRows         = errors.New("dataset has too few rows to split")
	ErrBelowMinAccuracy   = errors.New("accuracy below configured minimum")
	ErrTargetIsFeature    = errors.New("target column cannot be a feature")
	ErrCategoricalFeature = errors.New("fraud features must be numeric")
)

// Failure reports the phase a training run stopped in. Nothing is persisted
// when a run fails.
type Failure struct {
	Phase Phase
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("training failed during %s: %v", f.Phase, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func fail(phase Phase, err error) error {
	return &Failure{Phase: phase, Err: err}
}
