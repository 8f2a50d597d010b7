package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ApplyLoanRequest is the POST /apply-loan body. Fields are pointers so a
// missing key and an explicit null both decode to nil.
type ApplyLoanRequest struct {
	Income      *Number `json:"income" validate:"required,numberlike"`
	LoanAmount  *Number `json:"loan_amount" validate:"required,numberlike"`
	CreditScore *Number `json:"credit_score" validate:"required,numberlike"`
	Tenure      *Number `json:"tenure" validate:"required,numberlike"`
}

// Application converts a validated request. Presence is checked for every
// field before any value is converted, so a missing field is reported even
// when an earlier field is malformed.
func (r *ApplyLoanRequest) Application() (Application, error) {
	var app Application
	fields := []struct {
		name string
		in   *Number
		out  *float64
	}{
		{FeatureIncome, r.Income, &app.Income},
		{FeatureLoanAmount, r.LoanAmount, &app.LoanAmount},
		{FeatureCreditScore, r.CreditScore, &app.CreditScore},
		{FeatureTenure, r.Tenure, &app.Tenure},
	}
	for _, f := range fields {
		if f.in == nil {
			return Application{}, &ValidationError{Field: f.name, Err: ErrMissing}
		}
	}
	for _, f := range fields {
		v, err := f.in.Float64()
		if err != nil {
			return Application{}, &ValidationError{Field: f.name, Err: err}
		}
		*f.out = v
	}
	return app, nil
}

var (
	ErrMissing   = errors.New("value is missing")
	ErrNotNumber = errors.New("value is not a number")
)

// Number holds the raw JSON text of a field that should convert to a float.
// Both JSON numbers and numeric strings such as "36" convert.
type Number string

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number(bytes.TrimSpace(b))
	return nil
}

// Float64 converts the raw value. Booleans, objects, arrays and non-finite
// values are rejected.
func (n Number) Float64() (float64, error) {
	raw := string(n)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return 0, ErrNotNumber
		}
		raw = strings.TrimSpace(s)
	} else if raw == "" || strings.ContainsAny(raw[:1], "{[tfn") {
		return 0, ErrNotNumber
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotNumber
	}
	return v, nil
}

// ValidationError names the field of a request that failed and wraps
// ErrMissing or ErrNotNumber.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// DecisionResponse is the POST /apply-loan success body. The probability is
// omitted when the fraud screen rejected the application.
type DecisionResponse struct {
	Status              DecisionStatus `json:"status"`
	ApprovalProbability *float64       `json:"approval_probability,omitempty"`
	Reason              string         `json:"reason"`
}

func NewDecisionResponse(d *Decision) DecisionResponse {
	return DecisionResponse{
		Status:              d.Status,
		ApprovalProbability: d.Probability,
		Reason:              d.Reason,
	}
}

// WelcomeMessage is served on GET /.
const WelcomeMessage = "AI-Based Smart Loan Approval Backend Running"
