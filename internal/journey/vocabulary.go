package journey

import (
	"bytes"
	"encoding/json"
)

// Stage is a coarse journey position. The zero value means unclassified.
type Stage string

const (
	StageUnset        Stage = ""
	StageProspecting  Stage = "PROSPECTING"
	StageOnboarding   Stage = "ONBOARDING"
	StageRelationship Stage = "RELATIONSHIP"
)

// Substage is a fine journey position belonging to exactly one Stage.
type Substage string

const (
	SubstageUnset Substage = ""

	SubstageInitialContact Substage = "INITIAL_CONTACT"
	SubstageQualification  Substage = "QUALIFICATION"
	SubstageProposalSent   Substage = "PROPOSAL_SENT"
	SubstageNegotiation    Substage = "NEGOTIATION"

	SubstageContractSigned     Substage = "CONTRACT_SIGNED"
	SubstageSetupStarted       Substage = "SETUP_STARTED"
	SubstageTrainingInProgress Substage = "TRAINING_IN_PROGRESS"
	SubstageImplementation     Substage = "IMPLEMENTATION"

	SubstageActiveClient         Substage = "ACTIVE_CLIENT"
	SubstageExpansionOpportunity Substage = "EXPANSION_OPPORTUNITY"
	SubstageRenewalDiscussion    Substage = "RENEWAL_DISCUSSION"
	SubstageAdvocate             Substage = "ADVOCATE"
)

type SubstageDefinition struct {
	Code Substage `json:"code"`
	Name string   `json:"name"`
}

type StageDefinition struct {
	Code      Stage                `json:"code"`
	Name      string               `json:"name"`
	Rank      int                  `json:"rank"`
	Substages []SubstageDefinition `json:"substages"`
}

// catalogue is ordered from least to most advanced; position defines Rank.
var catalogue = []StageDefinition{
	{
		Code: StageProspecting,
		Name: "Prospecting",
		Substages: []SubstageDefinition{
			{SubstageInitialContact, "Initial Contact"},
			{SubstageQualification, "Qualification"},
			{SubstageProposalSent, "Proposal Sent"},
			{SubstageNegotiation, "Negotiation"},
		},
	},
	{
		Code: StageOnboarding,
		Name: "Onboarding",
		Substages: []SubstageDefinition{
			{SubstageContractSigned, "Contract Signed"},
			{SubstageSetupStarted, "Setup Started"},
			{SubstageTrainingInProgress, "Training In Progress"},
			{SubstageImplementation, "Implementation"},
		},
	},
	{
		Code: StageRelationship,
		Name: "Relationship",
		Substages: []SubstageDefinition{
			{SubstageActiveClient, "Active Client"},
			{SubstageExpansionOpportunity, "Expansion Opportunity"},
			{SubstageRenewalDiscussion, "Renewal Discussion"},
			{SubstageAdvocate, "Brand Advocate"},
		},
	},
}

type stageEntry struct {
	name string
	rank int
}

type substageEntry struct {
	name  string
	stage Stage
}

var (
	stageIndex    = map[Stage]stageEntry{}
	substageIndex = map[Substage]substageEntry{}
)

func init() {
	for i := range catalogue {
		catalogue[i].Rank = i + 1
		def := catalogue[i]
		stageIndex[def.Code] = stageEntry{name: def.Name, rank: def.Rank}
		for _, sub := range def.Substages {
			substageIndex[sub.Code] = substageEntry{name: sub.Name, stage: def.Code}
		}
	}
}

// Stages returns a copy of the catalogue in journey order.
func Stages() []StageDefinition {
	out := make([]StageDefinition, len(catalogue))
	for i, def := range catalogue {
		out[i] = def
		out[i].Substages = append([]SubstageDefinition(nil), def.Substages...)
	}
	return out
}

// StageByCode looks a stage up by its code.
func StageByCode(code string) (StageDefinition, bool) {
	for _, def := range Stages() {
		if string(def.Code) == code {
			return def, true
		}
	}
	return StageDefinition{}, false
}

func (s Stage) Valid() bool {
	_, ok := stageIndex[s]
	return ok
}

// Rank is the stage's position in the journey, 0 for unset or unknown stages.
func (s Stage) Rank() int {
	return stageIndex[s].rank
}

func (s Stage) Name() string {
	return stageIndex[s].name
}

// Has reports whether sub belongs to this stage's vocabulary.
func (s Stage) Has(sub Substage) bool {
	e, ok := substageIndex[sub]
	return ok && e.stage == s
}

func (s Stage) MarshalJSON() ([]byte, error) {
	return marshalOptional(string(s))
}

func (s *Stage) UnmarshalJSON(data []byte) error {
	v, err := unmarshalOptional(data)
	*s = Stage(v)
	return err
}

func (s Substage) Valid() bool {
	_, ok := substageIndex[s]
	return ok
}

// Stage returns the stage owning this substage.
func (s Substage) Stage() Stage {
	return substageIndex[s].stage
}

func (s Substage) Name() string {
	return substageIndex[s].name
}

func (s Substage) MarshalJSON() ([]byte, error) {
	return marshalOptional(string(s))
}

func (s *Substage) UnmarshalJSON(data []byte) error {
	v, err := unmarshalOptional(data)
	*s = Substage(v)
	return err
}

// Consistent reports whether stage and substage form a valid pair, or are both unset.
func Consistent(stage Stage, sub Substage) bool {
	if stage == StageUnset && sub == SubstageUnset {
		return true
	}
	return stage.Valid() && stage.Has(sub)
}

// Label is a display string serialized as null when empty.
type Label string

func (l Label) MarshalJSON() ([]byte, error) {
	return marshalOptional(string(l))
}

func (l *Label) UnmarshalJSON(data []byte) error {
	v, err := unmarshalOptional(data)
	*l = Label(v)
	return err
}

func marshalOptional(s string) ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return json.Marshal(s)
}

func unmarshalOptional(data []byte) (string, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return "", nil
	}
	var s string
	err := json.Unmarshal(data, &s)
	return s, err
}
