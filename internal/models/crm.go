// internal/models/crm.go
package models

// CRMObject is a raw CRM record: an id plus its property bag as returned by the CRM API.
type CRMObject struct {
	ID         string                 `json:"id"`
	Properties map[string]interface{} `json:"properties"`
	CreatedAt  string                 `json:"createdAt,omitempty"`
	UpdatedAt  string                 `json:"updatedAt,omitempty"`
	Archived   bool                   `json:"archived,omitempty"`
}

// Page is one page of a CRM listing. Next is empty on the last page.
type Page struct {
	Results []CRMObject `json:"results"`
	Next    string      `json:"next,omitempty"`
}

const (
	PropDealStage               = "dealstage"
	PropAmount                  = "amount"
	PropDealName                = "dealname"
	PropFirstDepositDate        = "first_deposit_date"
	PropProposalSent            = "proposal_sent"
	PropAllocationDone          = "allocation_done"
	PropDateEnteredCurrentStage = "hs_date_entered_current_stage"

	PropFirstName             = "firstname"
	PropLastName              = "lastname"
	PropEmail                 = "email"
	PropWhatsappCadenceActive = "whatsapp_cadence_active"
	PropLastMeetingDate       = "last_meeting_date"
	PropEmailOpenRate         = "hs_email_open_rate"
	PropContactedNotes        = "num_contacted_notes"
)

// DealProperties lists the deal properties requested from the CRM.
var DealProperties = []string{
	PropDealStage,
	PropAmount,
	PropDealName,
	PropFirstDepositDate,
	PropProposalSent,
	PropAllocationDone,
	PropDateEnteredCurrentStage,
}

// ContactProperties lists the contact properties requested from the CRM.
var ContactProperties = []string{
	PropFirstName,
	PropLastName,
	PropEmail,
	PropWhatsappCadenceActive,
	PropLastMeetingDate,
	PropEmailOpenRate,
	PropContactedNotes,
}

// NoContactID identifies the placeholder contact used when a deal has no associated contact.
const NoContactID = "no-contact"
