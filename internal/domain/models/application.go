package models

// Serving feature names, in the column order every artifact is trained on.
const (
	FeatureIncome      = "income"
	FeatureLoanAmount  = "loan_amount"
	FeatureCreditScore = "credit_score"
	FeatureTenure      = "tenure"
)

var applicationSchema = []string{FeatureIncome, FeatureLoanAmount, FeatureCreditScore, FeatureTenure}

// ApplicationSchema returns a copy of the ordered serving schema.
func ApplicationSchema() []string {
	return append([]string(nil), applicationSchema...)
}

// Application is one loan request after validation. No range checks are
// applied; negative or zero values are passed to the models as-is.
type Application struct {
	Income      float64
	LoanAmount  float64
	CreditScore float64
	Tenure      float64
}

// FeatureRecord is a single row in ApplicationSchema order.
type FeatureRecord []float64

// Map returns the record keyed by feature name, for transports that want
// named fields.
func (r FeatureRecord) Map() map[string]float64 {
	out := make(map[string]float64, len(r))
	for i, v := range r {
		if i < len(applicationSchema) {
			out[applicationSchema[i]] = v
		}
	}
	return out
}
