// Package records is the read-only case-record store: tabular assessment rows
// keyed by (identity number, case reference), projected into a null-safe
// CaseSummary for the workflow.
package records

import "time"

// Record is one assessment row for a case.
type Record struct {
	Date           string  `json:"date"`
	Description    string  `json:"description"`
	AssessmentYear int     `json:"year_of_assessment"`
	Payable        float64 `json:"payable"`
	Paid           float64 `json:"paid"`
	Balance        float64 `json:"balance"`
	HoldDate       string  `json:"hold_date,omitempty"`
	HoldBank       string  `json:"hold_bank,omitempty"`
	HoldAmount     float64 `json:"hold_amount,omitempty"`
}

// HoldDetail describes the active account hold for a case, taken from the
// latest row that carries a hold date.
type HoldDetail struct {
	Institution    string  `json:"institution"`
	Amount         float64 `json:"amount"`
	Date           string  `json:"date"`
	AssessmentYear int     `json:"year_of_assessment"`
}

// CaseSummary is the typed projection the workflow consumes. Balance comes
// from the latest row as stored; it is never recomputed here.
type CaseSummary struct {
	TotalPayable   float64     `json:"total_payable"`
	TotalPaid      float64     `json:"total_paid"`
	CurrentBalance float64     `json:"current_balance"`
	Hold           *HoldDetail `json:"hold,omitempty"`
	Rows           []Record    `json:"rows"`
	ResolvedAt     time.Time   `json:"resolved_at"`
}

// Settled reports whether the latest balance is zero (to the cent).
func (s *CaseSummary) Settled() bool {
	return s != nil && s.CurrentBalance < 0.005 && s.CurrentBalance > -0.005
}
