package journey

import (
	"strings"
	"time"

	"journey-board/internal/models"
)

// Journey is the classification result for one deal and contact pair.
type Journey struct {
	DealID          string   `json:"dealId"`
	ContactID       string   `json:"contactId"`
	Stage           Stage    `json:"stage"`
	Substage        Substage `json:"substage"`
	StageName       Label    `json:"stageName"`
	SubstageName    Label    `json:"substageName"`
	Score           int      `json:"score"`
	Indicators      []string `json:"indicators"`
	Recommendations []string `json:"recommendations"`
	Metadata        Metadata `json:"metadata"`
}

type Metadata struct {
	AnalyzedAt         time.Time `json:"analyzedAt"`
	DaysInCurrentStage int       `json:"daysInCurrentStage"`
	DealAmount         float64   `json:"dealAmount"`
	ContactName        string    `json:"contactName"`
	ContactEmail       string    `json:"contactEmail,omitempty"`
}

// Classifier maps normalized records to a Journey. It holds no mutable state and is safe for
// concurrent use.
type Classifier struct {
	rules *RuleSet
	now   func() time.Time
}

type Option func(*Classifier)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		c.now = now
	}
}

func NewClassifier(rules *RuleSet, opts ...Option) *Classifier {
	if rules == nil {
		rules = DefaultRuleSet()
	}
	c := &Classifier{rules: rules, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Classifier) Rules() *RuleSet {
	return c.rules
}

// Classify reads the clock once and classifies at that instant.
func (c *Classifier) Classify(deal models.DealRecord, contact models.ContactRecord) Journey {
	return c.ClassifyAt(deal, contact, c.now())
}

// ClassifyAt is the deterministic form of Classify.
func (c *Classifier) ClassifyAt(deal models.DealRecord, contact models.ContactRecord, now time.Time) Journey {
	now = now.UTC()
	stage, sub := c.rules.Evaluate(deal, contact, now)

	amount := deal.Amount
	if amount < 0 {
		amount = 0
	}

	return Journey{
		DealID:          deal.ID,
		ContactID:       contact.ID,
		Stage:           stage,
		Substage:        sub,
		StageName:       Label(stage.Name()),
		SubstageName:    Label(sub.Name()),
		Score:           Score(stage, sub),
		Indicators:      c.rules.Indicators(deal, contact),
		Recommendations: Recommendations(stage),
		Metadata: Metadata{
			AnalyzedAt:         now,
			DaysInCurrentStage: DaysInStage(deal.DateEnteredCurrentStage, now),
			DealAmount:         amount,
			ContactName:        strings.TrimSpace(contact.FirstName + " " + contact.LastName),
			ContactEmail:       contact.Email,
		},
	}
}
