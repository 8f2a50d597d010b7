package features

import (
	"errors"
	"fmt"

	"SmartLoan/internal/domain/models"
)

var ErrSchemaMismatch = errors.New("feature schema mismatch")

// Assemble builds the single-row record in models.ApplicationSchema order.
// Values pass through unscaled.
func Assemble(app models.Application) models.FeatureRecord {
	return models.FeatureRecord{
		app.Income,
		app.LoanAmount,
		app.CreditScore,
		app.Tenure,
	}
}

// CheckSchema fails when got differs from expected in names, count or order.
func CheckSchema(expected, got []string) error {
	if len(expected) != len(got) {
		return fmt.Errorf("%w: expected %d features %v, got %d %v", ErrSchemaMismatch, len(expected), expected, len(got), got)
	}
	for i := range expected {
		if expected[i] != got[i] {
			return fmt.Errorf("%w: position %d is %q, expected %q", ErrSchemaMismatch, i, got[i], expected[i])
		}
	}
	return nil
}

// CheckEncoders fails when any serving feature has a categorical encoder:
// the service never encodes inputs, so such an artifact was trained on a
// different representation.
func CheckEncoders(schema, encoded []string) error {
	set := make(map[string]struct{}, len(encoded))
	for _, col := range encoded {
		set[col] = struct{}{}
	}
	for _, name := range schema {
		if _, ok := set[name]; ok {
			return fmt.Errorf("%w: serving feature %q is categorical in the encoders artifact", ErrSchemaMismatch, name)
		}
	}
	return nil
}
