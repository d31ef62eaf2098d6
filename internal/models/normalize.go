// internal/models/normalize.go
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DealFromProperties normalizes a raw deal property bag. It never fails: missing or malformed
// values fall back to their zero defaults.
func DealFromProperties(id string, props map[string]interface{}) DealRecord {
	amount := Number(props[PropAmount])
	if amount < 0 {
		amount = 0
	}
	return DealRecord{
		ID:                      id,
		Name:                    String(props[PropDealName]),
		DealStage:               String(props[PropDealStage]),
		Amount:                  amount,
		FirstDepositDate:        String(props[PropFirstDepositDate]),
		ProposalSent:            Truthy(props[PropProposalSent]),
		AllocationDone:          Truthy(props[PropAllocationDone]),
		DateEnteredCurrentStage: String(props[PropDateEnteredCurrentStage]),
	}
}

// ContactFromProperties normalizes a raw contact property bag.
func ContactFromProperties(id string, props map[string]interface{}) ContactRecord {
	notes := Number(props[PropContactedNotes])
	if notes < 0 {
		notes = 0
	}
	if notes > math.MaxInt32 {
		notes = math.MaxInt32
	}
	return ContactRecord{
		ID:                    id,
		FirstName:             String(props[PropFirstName]),
		LastName:              String(props[PropLastName]),
		Email:                 String(props[PropEmail]),
		WhatsappCadenceActive: Truthy(props[PropWhatsappCadenceActive]),
		LastMeetingDate:       String(props[PropLastMeetingDate]),
		EmailOpenRate:         Number(props[PropEmailOpenRate]),
		ContactedNotesCount:   int(notes),
	}
}

// DealFromObject normalizes a raw CRM deal.
func DealFromObject(obj CRMObject) DealRecord {
	return DealFromProperties(obj.ID, obj.Properties)
}

// ContactFromObject normalizes a raw CRM contact.
func ContactFromObject(obj CRMObject) ContactRecord {
	return ContactFromProperties(obj.ID, obj.Properties)
}

// Truthy is true only for a native true or the exact string "true".
func Truthy(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	default:
		return false
	}
}

// Number coerces JSON numbers and numeric strings. Anything else, including NaN and infinities,
// is 0.
func Number(v interface{}) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// String returns a trimmed string form of scalar values; nil and composite values are "".
func String(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case bool, float64, float32, int, int32, int64, json.Number:
		return fmt.Sprint(s)
	default:
		return ""
	}
}
