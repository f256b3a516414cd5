package models

// Evaluation is the model's judgment of a listing.
//
// Rating 0 means the model output could not be parsed with confidence and is
// distinct from a model-asserted rating of 1. Degraded is set whenever the
// strict JSON path did not produce the result.
type Evaluation struct {
	Rating   int    `json:"rating"`
	Reason   string `json:"reason"`
	Message  string `json:"message"`
	Degraded bool   `json:"degraded,omitempty"`
}
