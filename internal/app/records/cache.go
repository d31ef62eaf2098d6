package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"journey-board/internal/common/database"
	"journey-board/internal/common/logger"
	"journey-board/internal/common/metrics"
	"journey-board/internal/models"
)

// CachedSource is a cache-aside decorator over a Source. Redis failures degrade to direct
// lookups; source errors, including not-found, are never cached.
type CachedSource struct {
	source Source
	redis  *database.RedisClient
	ttl    time.Duration
	prefix string
	log    logger.Logger
}

func NewCachedSource(source Source, redis *database.RedisClient, ttl time.Duration, prefix string, log logger.Logger) *CachedSource {
	if prefix == "" {
		prefix = "journey:crm"
	}
	return &CachedSource{
		source: source,
		redis:  redis,
		ttl:    ttl,
		prefix: prefix,
		log:    log,
	}
}

func (c *CachedSource) dealKey(id string) string {
	return fmt.Sprintf("%s:deal:%s", c.prefix, id)
}

func (c *CachedSource) contactKey(id string) string {
	return fmt.Sprintf("%s:contact:%s", c.prefix, id)
}

func (c *CachedSource) associationKey(dealID string) string {
	return fmt.Sprintf("%s:deal:%s:first-contact", c.prefix, dealID)
}

func (c *CachedSource) GetDeal(ctx context.Context, dealID string) (*models.CRMObject, error) {
	return c.getObject(ctx, "deal", c.dealKey(dealID), func() (*models.CRMObject, error) {
		return c.source.GetDeal(ctx, dealID)
	})
}

func (c *CachedSource) GetContact(ctx context.Context, contactID string) (*models.CRMObject, error) {
	return c.getObject(ctx, "contact", c.contactKey(contactID), func() (*models.CRMObject, error) {
		return c.source.GetContact(ctx, contactID)
	})
}

func (c *CachedSource) getObject(ctx context.Context, objectType, key string, load func() (*models.CRMObject, error)) (*models.CRMObject, error) {
	var cached models.CRMObject
	err := c.redis.GetJSON(ctx, key, &cached)
	switch {
	case err == nil:
		metrics.RecordCacheLookups.WithLabelValues(objectType, "hit").Inc()
		return &cached, nil
	case errors.Is(err, database.ErrCacheMiss):
		metrics.RecordCacheLookups.WithLabelValues(objectType, "miss").Inc()
	default:
		metrics.RecordCacheLookups.WithLabelValues(objectType, "error").Inc()
		c.log.Warn("record cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	obj, err := load()
	if err != nil {
		return nil, err
	}

	if err := c.redis.SetJSON(ctx, key, obj, c.ttl); err != nil {
		c.log.Warn("record cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return obj, nil
}

type association struct {
	ContactID string `json:"contactId"`
}

func (c *CachedSource) FirstDealContactID(ctx context.Context, dealID string) (string, error) {
	key := c.associationKey(dealID)

	var cached association
	err := c.redis.GetJSON(ctx, key, &cached)
	switch {
	case err == nil:
		metrics.RecordCacheLookups.WithLabelValues("association", "hit").Inc()
		return cached.ContactID, nil
	case errors.Is(err, database.ErrCacheMiss):
		metrics.RecordCacheLookups.WithLabelValues("association", "miss").Inc()
	default:
		metrics.RecordCacheLookups.WithLabelValues("association", "error").Inc()
		c.log.Warn("association cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	contactID, err := c.source.FirstDealContactID(ctx, dealID)
	if err != nil {
		return "", err
	}

	if err := c.redis.SetJSON(ctx, key, association{ContactID: contactID}, c.ttl); err != nil {
		c.log.Warn("association cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return contactID, nil
}

// Invalidate removes the cached deal, its association and, when given, the contact.
func (c *CachedSource) Invalidate(ctx context.Context, dealID, contactID string) error {
	keys := []string{}
	if dealID != "" {
		keys = append(keys, c.dealKey(dealID), c.associationKey(dealID))
	}
	if contactID != "" {
		keys = append(keys, c.contactKey(contactID))
	}
	if err := c.redis.Del(ctx, keys...); err != nil {
		return fmt.Errorf("failed to invalidate cached records: %w", err)
	}
	return nil
}
