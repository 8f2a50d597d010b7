package models

import "time"

type DecisionStatus string

const (
	StatusApproved DecisionStatus = "Approved"
	StatusRejected DecisionStatus = "Rejected"
)

const (
	ReasonFraud    = "Fraud detected by ML model"
	ReasonLowRisk  = "Low risk profile (ML decision)"
	ReasonHighRisk = "High risk profile (ML decision)"
)

// FraudLabel is the fraud classifier output that marks an application as
// fraudulent.
const FraudLabel = -1

// Decision is the outcome for one application. Probability is nil when the
// fraud screen short-circuited the approval model.
type Decision struct {
	ID            string
	Status        DecisionStatus
	Reason        string
	Probability   *float64
	FraudLabel    int
	ApprovalLabel *int
	Features      FeatureRecord
	Backend       string
	CreatedAt     time.Time
}

func (d *Decision) IsFraud() bool { return d.FraudLabel == FraudLabel }
