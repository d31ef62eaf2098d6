package records

import (
	"context"

	"journey-board/internal/models"
)

// Source resolves raw CRM records. *hubspot.CRMClient satisfies it directly.
type Source interface {
	GetDeal(ctx context.Context, dealID string) (*models.CRMObject, error)
	GetContact(ctx context.Context, contactID string) (*models.CRMObject, error)
	// FirstDealContactID returns "" when the deal has no associated contact.
	FirstDealContactID(ctx context.Context, dealID string) (string, error)
}

// Invalidator drops cached state for a deal and, optionally, a contact.
type Invalidator interface {
	Invalidate(ctx context.Context, dealID, contactID string) error
}
