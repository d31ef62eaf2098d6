// internal/models/records.go
package models

// DealRecord is a deal after normalization. Booleans and numbers are already coerced.
type DealRecord struct {
	ID                      string  `json:"id"`
	Name                    string  `json:"name,omitempty"`
	DealStage               string  `json:"dealStage"`
	Amount                  float64 `json:"amount"`
	FirstDepositDate        string  `json:"firstDepositDate,omitempty"`
	ProposalSent            bool    `json:"proposalSent"`
	AllocationDone          bool    `json:"allocationDone"`
	DateEnteredCurrentStage string  `json:"dateEnteredCurrentStage,omitempty"`
}

// HasFirstDeposit reports whether a first deposit date was recorded.
func (d DealRecord) HasFirstDeposit() bool {
	return d.FirstDepositDate != ""
}

// ContactRecord is a contact after normalization.
type ContactRecord struct {
	ID                    string  `json:"id"`
	FirstName             string  `json:"firstName,omitempty"`
	LastName              string  `json:"lastName,omitempty"`
	Email                 string  `json:"email,omitempty"`
	WhatsappCadenceActive bool    `json:"whatsappCadenceActive"`
	LastMeetingDate       string  `json:"lastMeetingDate,omitempty"`
	EmailOpenRate         float64 `json:"emailOpenRate"`
	ContactedNotesCount   int     `json:"contactedNotesCount"`
}

// PlaceholderContact stands in for a deal without any associated contact.
func PlaceholderContact() ContactRecord {
	return ContactRecord{ID: NoContactID}
}
