package classifyjourney

import "journey-board/internal/journey"

type Input struct {
	DealID    string `json:"dealId"`
	ContactID string `json:"contactId,omitempty"`
}

// Output is merged into the process instance. The flat fields let gateways branch on the
// stage without reading into the journey document.
type Output struct {
	Journey         journey.Journey `json:"journey"`
	JourneyStage    string          `json:"journeyStage"`
	JourneySubstage string          `json:"journeySubstage"`
	JourneyScore    int             `json:"journeyScore"`
}

func newOutput(j journey.Journey) *Output {
	return &Output{
		Journey:         j,
		JourneyStage:    string(j.Stage),
		JourneySubstage: string(j.Substage),
		JourneyScore:    j.Score,
	}
}
