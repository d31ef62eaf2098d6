package analyzer

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"journey-board/internal/app/records"
	commonerrors "journey-board/internal/common/errors"
	"journey-board/internal/common/hubspot"
	"journey-board/internal/common/logger"
	"journey-board/internal/common/metrics"
	"journey-board/internal/common/observability"
	"journey-board/internal/journey"
	"journey-board/internal/models"
)

const (
	originCRM    = "crm"
	originInline = "inline"
)

// Request identifies the deal to analyze. ContactID is optional; without it the deal's first
// associated contact is used.
type Request struct {
	DealID    string
	ContactID string
	// Refresh drops cached CRM records before the lookup.
	Refresh bool
}

// Service resolves a deal and its contact from the CRM and classifies them.
type Service struct {
	source     records.Source
	classifier *journey.Classifier
	obs        *observability.Observability
	log        logger.Logger
}

func NewService(source records.Source, classifier *journey.Classifier, obs *observability.Observability, log logger.Logger) *Service {
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Service{
		source:     source,
		classifier: classifier,
		obs:        obs,
		log:        log,
	}
}

// Analyze returns the journey for req. Failures are *errors.StandardError values carrying one
// of MISSING_INPUT, RECORD_NOT_FOUND, UPSTREAM_FAILURE, UPSTREAM_TIMEOUT or INTERNAL_ERROR.
func (s *Service) Analyze(ctx context.Context, req Request) (*journey.Journey, error) {
	start := time.Now()
	req.DealID = strings.TrimSpace(req.DealID)
	req.ContactID = strings.TrimSpace(req.ContactID)

	j, err := s.analyze(ctx, req)
	if err != nil {
		stdErr := commonerrors.AsStandardError(err)
		metrics.JourneyAnalysisFailures.WithLabelValues(string(stdErr.Code)).Inc()
		s.obs.RecordAnalysis(ctx, "error", metrics.StageLabel(""), time.Since(start))
		s.log.Warn("journey analysis failed", map[string]interface{}{
			"dealId":    req.DealID,
			"contactId": req.ContactID,
			"errorCode": string(stdErr.Code),
			"details":   stdErr.Details,
		})
		return nil, stdErr
	}

	s.record(ctx, j, originCRM, start)
	return j, nil
}

func (s *Service) analyze(ctx context.Context, req Request) (*journey.Journey, error) {
	if req.DealID == "" {
		return nil, commonerrors.NewMissingInputError("dealId")
	}

	if req.Refresh {
		if inv, ok := s.source.(records.Invalidator); ok {
			if err := inv.Invalidate(ctx, req.DealID, req.ContactID); err != nil {
				s.log.Warn("cache invalidation failed", map[string]interface{}{"dealId": req.DealID, "error": err.Error()})
			}
		}
	}

	dealObj, err := s.source.GetDeal(ctx, req.DealID)
	if err != nil {
		s.obs.RecordCRMLookup(ctx, "deal", "error")
		return nil, lookupError("deal", req.DealID, "get deal", err)
	}
	s.obs.RecordCRMLookup(ctx, "deal", "found")

	contact, err := s.resolveContact(ctx, req)
	if err != nil {
		return nil, err
	}

	j := s.classifier.Classify(models.DealFromObject(*dealObj), contact)
	return &j, nil
}

// resolveContact prefers the explicit contact, then the first association, then a placeholder.
func (s *Service) resolveContact(ctx context.Context, req Request) (models.ContactRecord, error) {
	contactID := req.ContactID
	if contactID == "" {
		id, err := s.source.FirstDealContactID(ctx, req.DealID)
		if err != nil {
			s.obs.RecordCRMLookup(ctx, "association", "error")
			return models.ContactRecord{}, upstreamError("list deal associations", err)
		}
		if id == "" {
			s.obs.RecordCRMLookup(ctx, "association", "none")
			s.log.Debug("deal has no associated contact", map[string]interface{}{"dealId": req.DealID})
			return models.PlaceholderContact(), nil
		}
		s.obs.RecordCRMLookup(ctx, "association", "found")
		contactID = id
	}

	obj, err := s.source.GetContact(ctx, contactID)
	if err != nil {
		s.obs.RecordCRMLookup(ctx, "contact", "error")
		return models.ContactRecord{}, lookupError("contact", contactID, "get contact", err)
	}
	s.obs.RecordCRMLookup(ctx, "contact", "found")
	return models.ContactFromObject(*obj), nil
}

// ClassifyRecords classifies records supplied by the caller, skipping the CRM. A nil contact is
// replaced by the placeholder contact.
func (s *Service) ClassifyRecords(ctx context.Context, deal models.CRMObject, contact *models.CRMObject) journey.Journey {
	start := time.Now()

	c := models.PlaceholderContact()
	if contact != nil {
		c = models.ContactFromObject(*contact)
	}
	j := s.classifier.Classify(models.DealFromObject(deal), c)

	s.record(ctx, &j, originInline, start)
	return j
}

func (s *Service) record(ctx context.Context, j *journey.Journey, origin string, start time.Time) {
	stage := metrics.StageLabel(string(j.Stage))
	metrics.JourneyClassifications.WithLabelValues(stage, origin).Inc()
	metrics.JourneyScore.Observe(float64(j.Score))
	s.obs.RecordAnalysis(ctx, "success", stage, time.Since(start))

	s.log.Info("journey classified", map[string]interface{}{
		"dealId":    j.DealID,
		"contactId": j.ContactID,
		"stage":     stage,
		"substage":  string(j.Substage),
		"score":     j.Score,
		"origin":    origin,
	})
}

func lookupError(objectType, id, operation string, err error) error {
	if errors.Is(err, hubspot.ErrNotFound) {
		return commonerrors.NewRecordNotFoundError(objectType, id)
	}
	return upstreamError(operation, err)
}

func upstreamError(operation string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return commonerrors.NewUpstreamTimeoutError(operation, err)
	}
	return commonerrors.NewUpstreamFailureError(operation, err)
}
