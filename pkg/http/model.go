package http

// ErrorStatus is the status value of every error body.
const ErrorStatus = "Error"

// ErrorResponse is the flat error body: {"status":"Error","message":"..."}.
type ErrorResponse struct {
	Status  string `json:"status" example:"Error"`
	Message string `json:"message" example:"income is missing"`
}

// MessageResponse carries a single informational message.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by liveness probes.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
