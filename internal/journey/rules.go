package journey

import (
	"fmt"
	"time"

	"journey-board/internal/models"
)

// Thresholds are the tunable numbers behind rules and indicators.
type Thresholds struct {
	HighValueAmount   float64
	EmailOpenRate     float64
	MeetingWindowDays int
	// ContactedNotesThreshold enables the contacted-notes indicator when above zero.
	ContactedNotesThreshold int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		HighValueAmount:   10000,
		EmailOpenRate:     0.3,
		MeetingWindowDays: 90,
	}
}

// Pipeline stage values from the CRM deal pipeline.
const (
	DealStageAppointmentScheduled  = "appointmentscheduled"
	DealStagePresentationScheduled = "presentationscheduled"
	DealStageContractSent          = "contractsent"
	DealStageClosedWon             = "closedwon"
)

// predicate reports whether a rule matches and, if so, the substage it assigns.
type predicate func(deal models.DealRecord, contact models.ContactRecord, now time.Time) (Substage, bool)

type rule struct {
	stage Stage
	match predicate
}

// RuleSet is the immutable classification policy. Build it once and share the pointer.
type RuleSet struct {
	thresholds        Thresholds
	prospectingStages map[string]struct{}
	onboardingStages  map[string]struct{}
	rules             []rule
}

// NewRuleSet validates thresholds and assembles the predicate table.
func NewRuleSet(t Thresholds) (*RuleSet, error) {
	if t.HighValueAmount < 0 {
		return nil, fmt.Errorf("high value amount must be non-negative, got %v", t.HighValueAmount)
	}
	if t.EmailOpenRate < 0 || t.EmailOpenRate > 1 {
		return nil, fmt.Errorf("email open rate must be within [0,1], got %v", t.EmailOpenRate)
	}
	if t.MeetingWindowDays < 0 {
		return nil, fmt.Errorf("meeting window must be non-negative, got %d", t.MeetingWindowDays)
	}
	if t.ContactedNotesThreshold < 0 {
		return nil, fmt.Errorf("contacted notes threshold must be non-negative, got %d", t.ContactedNotesThreshold)
	}

	rs := &RuleSet{
		thresholds: t,
		prospectingStages: stageSet(
			DealStageAppointmentScheduled,
			DealStagePresentationScheduled,
		),
		onboardingStages: stageSet(
			DealStageContractSent,
			DealStageClosedWon,
		),
	}
	rs.rules = []rule{
		{stage: StageProspecting, match: rs.prospecting},
		{stage: StageOnboarding, match: rs.onboarding},
		{stage: StageRelationship, match: rs.relationship},
	}
	return rs, nil
}

// DefaultRuleSet uses DefaultThresholds.
func DefaultRuleSet() *RuleSet {
	rs, err := NewRuleSet(DefaultThresholds())
	if err != nil {
		panic(err)
	}
	return rs
}

func stageSet(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func (rs *RuleSet) Thresholds() Thresholds {
	return rs.thresholds
}

func (rs *RuleSet) prospecting(deal models.DealRecord, _ models.ContactRecord, _ time.Time) (Substage, bool) {
	if _, ok := rs.prospectingStages[deal.DealStage]; !ok {
		return SubstageUnset, false
	}
	if deal.ProposalSent {
		return SubstageProposalSent, true
	}
	return SubstageInitialContact, true
}

func (rs *RuleSet) onboarding(deal models.DealRecord, _ models.ContactRecord, _ time.Time) (Substage, bool) {
	if _, ok := rs.onboardingStages[deal.DealStage]; !ok || !deal.HasFirstDeposit() {
		return SubstageUnset, false
	}
	if deal.AllocationDone {
		return SubstageImplementation, true
	}
	return SubstageContractSigned, true
}

func (rs *RuleSet) relationship(_ models.DealRecord, contact models.ContactRecord, now time.Time) (Substage, bool) {
	if !contact.WhatsappCadenceActive {
		return SubstageUnset, false
	}
	if DaysSince(contact.LastMeetingDate, now) > rs.thresholds.MeetingWindowDays {
		return SubstageUnset, false
	}
	return SubstageActiveClient, true
}

// Evaluate runs every rule and keeps the most advanced matching stage. With no match both
// results are unset.
func (rs *RuleSet) Evaluate(deal models.DealRecord, contact models.ContactRecord, now time.Time) (Stage, Substage) {
	stage, sub := StageUnset, SubstageUnset
	for _, r := range rs.rules {
		s, ok := r.match(deal, contact, now)
		if !ok {
			continue
		}
		if r.stage.Rank() > stage.Rank() {
			stage, sub = r.stage, s
		}
	}
	return stage, sub
}
