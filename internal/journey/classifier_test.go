package journey

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journey-board/internal/models"
)

// ==========================
// Helpers
// ==========================

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	return NewClassifier(DefaultRuleSet(), WithClock(func() time.Time { return fixedNow }))
}

func daysAgo(n int) string {
	return fixedNow.AddDate(0, 0, -n).Format(time.RFC3339)
}

func deal(props map[string]interface{}) models.DealRecord {
	return models.DealFromProperties("deal-1", props)
}

func contact(props map[string]interface{}) models.ContactRecord {
	return models.ContactFromProperties("contact-1", props)
}

func assertInvariants(t *testing.T, j Journey) {
	t.Helper()
	assert.GreaterOrEqual(t, j.Score, MinScore)
	assert.LessOrEqual(t, j.Score, MaxScore)
	assert.True(t, Consistent(j.Stage, j.Substage), "inconsistent pair %q/%q", j.Stage, j.Substage)
	assert.GreaterOrEqual(t, j.Metadata.DaysInCurrentStage, 0)
	assert.NotNil(t, j.Indicators)
	assert.NotNil(t, j.Recommendations)
}

// ==========================
// Stage resolution
// ==========================

func TestClassify_Stages(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		name      string
		deal      map[string]interface{}
		contact   map[string]interface{}
		wantStage Stage
		wantSub   Substage
		wantScore int
		wantRecs  int
	}{
		{
			name:      "prospecting with proposal sent",
			deal:      map[string]interface{}{"dealstage": "appointmentscheduled", "proposal_sent": true, "amount": 10000},
			wantStage: StageProspecting,
			wantSub:   SubstageProposalSent,
			wantScore: 35,
			wantRecs:  2,
		},
		{
			name:      "prospecting proposal sent as string",
			deal:      map[string]interface{}{"dealstage": "presentationscheduled", "proposal_sent": "true"},
			wantStage: StageProspecting,
			wantSub:   SubstageProposalSent,
			wantScore: 35,
			wantRecs:  2,
		},
		{
			name:      "prospecting initial contact",
			deal:      map[string]interface{}{"dealstage": "appointmentscheduled", "proposal_sent": "false"},
			wantStage: StageProspecting,
			wantSub:   SubstageInitialContact,
			wantScore: 20,
			wantRecs:  2,
		},
		{
			name:      "onboarding contract signed",
			deal:      map[string]interface{}{"dealstage": "closedwon", "first_deposit_date": "2024-11-01T10:00:00Z", "allocation_done": false, "amount": 50000},
			wantStage: StageOnboarding,
			wantSub:   SubstageContractSigned,
			wantScore: 50,
			wantRecs:  2,
		},
		{
			name:      "onboarding implementation",
			deal:      map[string]interface{}{"dealstage": "contractsent", "first_deposit_date": "2024-11-01", "allocation_done": "true"},
			wantStage: StageOnboarding,
			wantSub:   SubstageImplementation,
			wantScore: 70,
			wantRecs:  2,
		},
		{
			name:      "closed won without deposit is unset",
			deal:      map[string]interface{}{"dealstage": "closedwon"},
			wantStage: StageUnset,
			wantSub:   SubstageUnset,
			wantScore: 10,
			wantRecs:  0,
		},
		{
			name:      "relationship with recent meeting",
			deal:      map[string]interface{}{"dealstage": "closedwon", "amount": 75000},
			contact:   map[string]interface{}{"whatsapp_cadence_active": true, "last_meeting_date": daysAgo(30)},
			wantStage: StageRelationship,
			wantSub:   SubstageActiveClient,
			wantScore: 80,
			wantRecs:  2,
		},
		{
			name:      "relationship at the window edge",
			contact:   map[string]interface{}{"whatsapp_cadence_active": "true", "last_meeting_date": daysAgo(90)},
			wantStage: StageRelationship,
			wantSub:   SubstageActiveClient,
			wantScore: 80,
			wantRecs:  2,
		},
		{
			name:      "meeting outside window",
			contact:   map[string]interface{}{"whatsapp_cadence_active": true, "last_meeting_date": daysAgo(91)},
			wantStage: StageUnset,
			wantScore: 10,
		},
		{
			name:      "cadence without meeting date",
			contact:   map[string]interface{}{"whatsapp_cadence_active": true},
			wantStage: StageUnset,
			wantScore: 10,
		},
		{
			name:      "cadence flag other than true",
			contact:   map[string]interface{}{"whatsapp_cadence_active": "yes", "last_meeting_date": daysAgo(1)},
			wantStage: StageUnset,
			wantScore: 10,
		},
		{
			name:      "unrecognized pipeline stage",
			deal:      map[string]interface{}{"dealstage": "qualifiedtobuy"},
			wantStage: StageUnset,
			wantScore: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := c.Classify(deal(tt.deal), contact(tt.contact))

			assertInvariants(t, j)
			assert.Equal(t, tt.wantStage, j.Stage)
			assert.Equal(t, tt.wantSub, j.Substage)
			assert.Equal(t, tt.wantScore, j.Score)
			assert.Len(t, j.Recommendations, tt.wantRecs)
			assert.Equal(t, Label(tt.wantStage.Name()), j.StageName)
			assert.Equal(t, Label(tt.wantSub.Name()), j.SubstageName)
		})
	}
}

func TestClassify_TieBreakPrefersMostAdvancedStage(t *testing.T) {
	c := newTestClassifier(t)
	recent := map[string]interface{}{"whatsapp_cadence_active": true, "last_meeting_date": daysAgo(5)}

	t.Run("onboarding and relationship", func(t *testing.T) {
		j := c.Classify(
			deal(map[string]interface{}{"dealstage": "closedwon", "first_deposit_date": "2024-11-01", "allocation_done": true}),
			contact(recent),
		)
		assert.Equal(t, StageRelationship, j.Stage)
		assert.Equal(t, SubstageActiveClient, j.Substage)
		assert.Equal(t, 80, j.Score)
	})

	t.Run("prospecting and relationship", func(t *testing.T) {
		j := c.Classify(
			deal(map[string]interface{}{"dealstage": "appointmentscheduled", "proposal_sent": true}),
			contact(recent),
		)
		assert.Equal(t, StageRelationship, j.Stage)
		assert.Equal(t, 80, j.Score)
	})
}

// ==========================
// Indicators and metadata
// ==========================

func TestClassify_Indicators(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		name    string
		deal    map[string]interface{}
		contact map[string]interface{}
		want    []string
	}{
		{"none", nil, nil, []string{}},
		{"amount at threshold is not high value", map[string]interface{}{"amount": 10000}, nil, []string{}},
		{"high value", map[string]interface{}{"amount": "10000.01"}, nil, []string{IndicatorHighValueDeal}},
		{"open rate at threshold", nil, map[string]interface{}{"hs_email_open_rate": 0.3}, []string{}},
		{
			"both in order",
			map[string]interface{}{"amount": 20000},
			map[string]interface{}{"hs_email_open_rate": "0.55"},
			[]string{IndicatorHighValueDeal, IndicatorHighEmailEngagement},
		},
		{"notes ignored by default", nil, map[string]interface{}{"num_contacted_notes": 12}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := c.Classify(deal(tt.deal), contact(tt.contact))
			assert.Equal(t, tt.want, j.Indicators)
		})
	}
}

func TestClassify_IndicatorsDoNotChangeScore(t *testing.T) {
	c := newTestClassifier(t)
	base := c.Classify(deal(map[string]interface{}{"dealstage": "appointmentscheduled"}), contact(nil))
	rich := c.Classify(
		deal(map[string]interface{}{"dealstage": "appointmentscheduled", "amount": 999999}),
		contact(map[string]interface{}{"hs_email_open_rate": 0.9}),
	)
	assert.Equal(t, base.Score, rich.Score)
	assert.Equal(t, base.Stage, rich.Stage)
	assert.Len(t, rich.Indicators, 2)
}

func TestClassify_ContactedNotesIndicator(t *testing.T) {
	th := DefaultThresholds()
	th.ContactedNotesThreshold = 5
	rs, err := NewRuleSet(th)
	require.NoError(t, err)
	c := NewClassifier(rs, WithClock(func() time.Time { return fixedNow }))

	assert.Empty(t, c.Classify(deal(nil), contact(map[string]interface{}{"num_contacted_notes": 5})).Indicators)
	assert.Equal(t,
		[]string{IndicatorHighEngagement},
		c.Classify(deal(nil), contact(map[string]interface{}{"num_contacted_notes": "6"})).Indicators,
	)
}

func TestClassify_EmptyRecords(t *testing.T) {
	c := newTestClassifier(t)
	j := c.Classify(models.DealRecord{ID: "d-empty"}, models.ContactRecord{ID: "c-empty"})

	assertInvariants(t, j)
	assert.Equal(t, "d-empty", j.DealID)
	assert.Equal(t, "c-empty", j.ContactID)
	assert.Equal(t, StageUnset, j.Stage)
	assert.Equal(t, 10, j.Score)
	assert.Empty(t, j.Indicators)
	assert.Empty(t, j.Recommendations)
	assert.Equal(t, fixedNow, j.Metadata.AnalyzedAt)
	assert.Equal(t, 0, j.Metadata.DaysInCurrentStage)
	assert.Equal(t, 0.0, j.Metadata.DealAmount)
	assert.Equal(t, "", j.Metadata.ContactName)
}

func TestClassify_Metadata(t *testing.T) {
	c := newTestClassifier(t)
	j := c.Classify(
		deal(map[string]interface{}{"amount": "1234.5", "hs_date_entered_current_stage": fixedNow.Add(-24 * time.Hour).Format(time.RFC3339)}),
		contact(map[string]interface{}{"firstname": "Ana", "email": "ana@example.com"}),
	)

	assert.Equal(t, 1, j.Metadata.DaysInCurrentStage)
	assert.Equal(t, 1234.5, j.Metadata.DealAmount)
	assert.Equal(t, "Ana", j.Metadata.ContactName)
	assert.Equal(t, "ana@example.com", j.Metadata.ContactEmail)

	j = c.Classify(deal(nil), contact(map[string]interface{}{"firstname": "Ana", "lastname": "Souza"}))
	assert.Equal(t, "Ana Souza", j.Metadata.ContactName)

	j = c.Classify(deal(nil), contact(map[string]interface{}{"lastname": "Souza"}))
	assert.Equal(t, "Souza", j.Metadata.ContactName)
}

func TestClassify_FarFutureTimestampsStayNonNegative(t *testing.T) {
	c := newTestClassifier(t)
	j := c.Classify(
		deal(map[string]interface{}{"dealstage": "appointmentscheduled", "hs_date_entered_current_stage": "9999-12-31"}),
		contact(map[string]interface{}{"whatsapp_cadence_active": true, "last_meeting_date": "9999-12-31"}),
	)

	assertInvariants(t, j)
	assert.Positive(t, j.Metadata.DaysInCurrentStage)
	assert.NotEqual(t, StageRelationship, j.Stage)
	assert.Equal(t, StageProspecting, j.Stage)
}

func TestClassify_NegativeAmountOnRawRecord(t *testing.T) {
	c := newTestClassifier(t)
	j := c.Classify(models.DealRecord{ID: "d", Amount: -5}, models.ContactRecord{ID: "c"})
	assert.Equal(t, 0.0, j.Metadata.DealAmount)
	assert.Empty(t, j.Indicators)
}

// ==========================
// Determinism
// ==========================

func TestClassify_Idempotent(t *testing.T) {
	c := NewClassifier(DefaultRuleSet())
	d := deal(map[string]interface{}{"dealstage": "contractsent", "first_deposit_date": "2024-11-01", "amount": 50000})
	ct := contact(map[string]interface{}{"firstname": "Rui", "hs_email_open_rate": 0.4})

	first := c.ClassifyAt(d, ct, fixedNow)
	second := c.ClassifyAt(d, ct, fixedNow)
	assert.Equal(t, first, second)

	later := c.ClassifyAt(d, ct, fixedNow.Add(time.Minute))
	later.Metadata.AnalyzedAt = first.Metadata.AnalyzedAt
	assert.Equal(t, first, later)
}

func TestClassify_ReadsClockOnce(t *testing.T) {
	calls := 0
	c := NewClassifier(DefaultRuleSet(), WithClock(func() time.Time {
		calls++
		return fixedNow.Add(time.Duration(calls) * 48 * time.Hour)
	}))

	j := c.Classify(
		deal(map[string]interface{}{"hs_date_entered_current_stage": fixedNow.Format(time.RFC3339)}),
		contact(nil),
	)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, j.Metadata.DaysInCurrentStage)
	assert.Equal(t, fixedNow.Add(48*time.Hour), j.Metadata.AnalyzedAt)
}

func TestJourneyJSON(t *testing.T) {
	c := newTestClassifier(t)

	data, err := json.Marshal(c.Classify(models.DealRecord{ID: "d"}, models.ContactRecord{ID: "c"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"dealId": "d",
		"contactId": "c",
		"stage": null,
		"substage": null,
		"stageName": null,
		"substageName": null,
		"score": 10,
		"indicators": [],
		"recommendations": [],
		"metadata": {
			"analyzedAt": "2025-01-15T12:00:00Z",
			"daysInCurrentStage": 0,
			"dealAmount": 0,
			"contactName": ""
		}
	}`, string(data))
}
