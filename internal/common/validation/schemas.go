package validation

const recordSchema = `{
	"type": "object",
	"required": ["id"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"properties": {
			"type": ["object", "null"],
			"additionalProperties": {"type": ["string", "number", "boolean", "null"]}
		}
	}
}`

// ClassifyRequestSchema describes the body of an inline classification request.
const ClassifyRequestSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["deal"],
	"additionalProperties": false,
	"properties": {
		"deal": ` + recordSchema + `,
		"contact": {"oneOf": [{"type": "null"}, ` + recordSchema + `]}
	}
}`

// JourneyJobInputSchema describes the variables the classify-journey job reads.
const JourneyJobInputSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["dealId"],
	"properties": {
		"dealId": {"type": ["string", "number"]},
		"contactId": {"type": ["string", "number", "null"]}
	}
}`
