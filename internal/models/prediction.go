package models

import (
	"fmt"
	"math"
)

// Verdict is the binary outcome returned by the prediction service
type Verdict string

const (
	Approved Verdict = "Approved"
	Rejected Verdict = "Rejected"
)

// ParseVerdict converts the wire string to a Verdict
func ParseVerdict(s string) (Verdict, error) {
	switch Verdict(s) {
	case Approved:
		return Approved, nil
	case Rejected:
		return Rejected, nil
	}
	return "", fmt.Errorf("unknown verdict %q", s)
}

// PredictionResult is the decoded response from the predict endpoint
type PredictionResult struct {
	Verdict    Verdict `json:"prediction"`
	Confidence float64 `json:"confidence"`
}

// IsApproved reports whether the verdict is Approved
func (p *PredictionResult) IsApproved() bool {
	return p != nil && p.Verdict == Approved
}

// Percent returns the confidence as a whole percentage in [0,100]
func (p *PredictionResult) Percent() int {
	if p == nil {
		return 0
	}
	c := p.Confidence
	if math.IsNaN(c) || c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return int(math.Round(c * 100))
}

// PercentLabel returns the display form, e.g. "82%"
func (p *PredictionResult) PercentLabel() string {
	return fmt.Sprintf("%d%%", p.Percent())
}

// Message returns the explanatory sentence shown under the verdict
func (p *PredictionResult) Message() string {
	if p.IsApproved() {
		return "Congratulations! Your loan application has been approved based on the provided information."
	}
	return "Unfortunately, your loan application does not meet the approval criteria at this time."
}
