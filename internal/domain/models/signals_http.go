package models

// Requests for signal HTTP endpoints. Defined in domain for consistency and reuse.

type PairRequest struct {
	Pair string `param:"pair" json:"pair" validate:"required"`
}

type HistoryRequest struct {
	Pair  string `param:"pair" json:"pair" validate:"required"`
	Limit int    `query:"limit" json:"limit" default:"24" validate:"gte=1,lte=500"`
}

type ErrorsRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=200"`
}

type HistoryResponse struct {
	Pair    string    `json:"pair"`
	Signals []*Signal `json:"signals"`
}

type DigestResponse struct {
	Digest string `json:"digest"`
}

type HealthResponse struct {
	Storage          string `json:"storage"`
	GenerationActive bool   `json:"generation_active"`
	ReasoningReady   bool   `json:"reasoning_ready"`
}
