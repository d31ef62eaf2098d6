package analyzer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"journey-board/internal/app/records"
	commonerrors "journey-board/internal/common/errors"
	"journey-board/internal/common/hubspot"
	"journey-board/internal/common/logger"
	"journey-board/internal/common/observability"
	"journey-board/internal/journey"
	"journey-board/internal/models"
)

var fixedNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

// ==========================
// Mocks
// ==========================

type mockSource struct {
	mock.Mock
}

func (m *mockSource) GetDeal(ctx context.Context, dealID string) (*models.CRMObject, error) {
	args := m.Called(ctx, dealID)
	if obj := args.Get(0); obj != nil {
		return obj.(*models.CRMObject), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSource) GetContact(ctx context.Context, contactID string) (*models.CRMObject, error) {
	args := m.Called(ctx, contactID)
	if obj := args.Get(0); obj != nil {
		return obj.(*models.CRMObject), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSource) FirstDealContactID(ctx context.Context, dealID string) (string, error) {
	args := m.Called(ctx, dealID)
	return args.String(0), args.Error(1)
}

type invalidatingSource struct {
	mockSource
}

func (m *invalidatingSource) Invalidate(ctx context.Context, dealID, contactID string) error {
	return m.Called(ctx, dealID, contactID).Error(0)
}

func newService(t *testing.T, src records.Source) *Service {
	t.Helper()
	classifier := journey.NewClassifier(journey.DefaultRuleSet(), journey.WithClock(func() time.Time { return fixedNow }))
	return NewService(src, classifier, observability.NewNoop(), logger.NewTestLogger(t))
}

func onboardingDeal(id string) *models.CRMObject {
	return &models.CRMObject{ID: id, Properties: map[string]interface{}{
		"dealstage":          "closedwon",
		"first_deposit_date": "2024-11-01T10:00:00Z",
		"amount":             "50000",
	}}
}

func activeContact(id string) *models.CRMObject {
	return &models.CRMObject{ID: id, Properties: map[string]interface{}{
		"firstname":               "Cliente",
		"lastname":                "Ativo",
		"whatsapp_cadence_active": "true",
		"last_meeting_date":       fixedNow.AddDate(0, 0, -30).Format(time.RFC3339),
	}}
}

// ==========================
// Contact resolution
// ==========================

func TestAnalyze_ExplicitContact(t *testing.T) {
	src := new(mockSource)
	src.On("GetDeal", mock.Anything, "d-1").Return(onboardingDeal("d-1"), nil)
	src.On("GetContact", mock.Anything, "c-1").Return(activeContact("c-1"), nil)

	j, err := newService(t, src).Analyze(context.Background(), Request{DealID: " d-1 ", ContactID: "c-1"})
	require.NoError(t, err)

	assert.Equal(t, "d-1", j.DealID)
	assert.Equal(t, "c-1", j.ContactID)
	assert.Equal(t, journey.StageRelationship, j.Stage)
	assert.Equal(t, "Cliente Ativo", j.Metadata.ContactName)
	assert.Equal(t, []string{journey.IndicatorHighValueDeal}, j.Indicators)

	src.AssertExpectations(t)
	src.AssertNotCalled(t, "FirstDealContactID", mock.Anything, mock.Anything)
}

func TestAnalyze_FirstAssociatedContact(t *testing.T) {
	src := new(mockSource)
	src.On("GetDeal", mock.Anything, "d-1").Return(onboardingDeal("d-1"), nil)
	src.On("FirstDealContactID", mock.Anything, "d-1").Return("c-7", nil)
	src.On("GetContact", mock.Anything, "c-7").Return(&models.CRMObject{ID: "c-7"}, nil)

	j, err := newService(t, src).Analyze(context.Background(), Request{DealID: "d-1"})
	require.NoError(t, err)
	assert.Equal(t, "c-7", j.ContactID)
	assert.Equal(t, journey.StageOnboarding, j.Stage)
	assert.Equal(t, journey.SubstageContractSigned, j.Substage)
	assert.Equal(t, 50, j.Score)
	src.AssertExpectations(t)
}

func TestAnalyze_NoAssociationUsesPlaceholder(t *testing.T) {
	src := new(mockSource)
	src.On("GetDeal", mock.Anything, "d-1").Return(onboardingDeal("d-1"), nil)
	src.On("FirstDealContactID", mock.Anything, "d-1").Return("", nil)

	j, err := newService(t, src).Analyze(context.Background(), Request{DealID: "d-1"})
	require.NoError(t, err)
	assert.Equal(t, models.NoContactID, j.ContactID)
	assert.Equal(t, "", j.Metadata.ContactName)
	assert.Equal(t, journey.StageOnboarding, j.Stage)
	src.AssertNotCalled(t, "GetContact", mock.Anything, mock.Anything)
}

// ==========================
// Error mapping
// ==========================

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		setup    func(*mockSource)
		wantCode commonerrors.ErrorCode
	}{
		{
			name:     "missing deal id",
			req:      Request{DealID: "   "},
			setup:    func(*mockSource) {},
			wantCode: commonerrors.ErrCodeMissingInput,
		},
		{
			name: "deal not found",
			req:  Request{DealID: "d-404"},
			setup: func(m *mockSource) {
				m.On("GetDeal", mock.Anything, "d-404").Return(nil, fmt.Errorf("get deal: %w", hubspot.ErrNotFound))
			},
			wantCode: commonerrors.ErrCodeRecordNotFound,
		},
		{
			name: "explicit contact not found",
			req:  Request{DealID: "d-1", ContactID: "c-404"},
			setup: func(m *mockSource) {
				m.On("GetDeal", mock.Anything, "d-1").Return(onboardingDeal("d-1"), nil)
				m.On("GetContact", mock.Anything, "c-404").Return(nil, hubspot.ErrNotFound)
			},
			wantCode: commonerrors.ErrCodeRecordNotFound,
		},
		{
			name: "deal fetch fails upstream",
			req:  Request{DealID: "d-1"},
			setup: func(m *mockSource) {
				m.On("GetDeal", mock.Anything, "d-1").Return(nil, &hubspot.APIError{Operation: "get deal", StatusCode: 503})
			},
			wantCode: commonerrors.ErrCodeUpstreamFailure,
		},
		{
			name: "association lookup fails",
			req:  Request{DealID: "d-1"},
			setup: func(m *mockSource) {
				m.On("GetDeal", mock.Anything, "d-1").Return(onboardingDeal("d-1"), nil)
				m.On("FirstDealContactID", mock.Anything, "d-1").Return("", errors.New("connection reset"))
			},
			wantCode: commonerrors.ErrCodeUpstreamFailure,
		},
		{
			name: "deadline exceeded",
			req:  Request{DealID: "d-1"},
			setup: func(m *mockSource) {
				m.On("GetDeal", mock.Anything, "d-1").Return(nil, fmt.Errorf("request: %w", context.DeadlineExceeded))
			},
			wantCode: commonerrors.ErrCodeUpstreamTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := new(mockSource)
			tt.setup(src)

			j, err := newService(t, src).Analyze(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, j)

			var stdErr *commonerrors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.NotEmpty(t, stdErr.Message)
			src.AssertExpectations(t)
		})
	}
}

func TestAnalyze_RefreshInvalidatesCache(t *testing.T) {
	src := new(invalidatingSource)
	src.On("Invalidate", mock.Anything, "d-1", "c-1").Return(errors.New("redis down"))
	src.On("GetDeal", mock.Anything, "d-1").Return(onboardingDeal("d-1"), nil)
	src.On("GetContact", mock.Anything, "c-1").Return(activeContact("c-1"), nil)

	_, err := newService(t, src).Analyze(context.Background(), Request{DealID: "d-1", ContactID: "c-1", Refresh: true})
	require.NoError(t, err)
	src.AssertExpectations(t)
}

// ==========================
// Inline classification
// ==========================

func TestClassifyRecords(t *testing.T) {
	svc := newService(t, new(mockSource))

	j := svc.ClassifyRecords(context.Background(), models.CRMObject{
		ID: "d-9",
		Properties: map[string]interface{}{
			"dealstage":     "appointmentscheduled",
			"proposal_sent": true,
		},
	}, nil)

	assert.Equal(t, "d-9", j.DealID)
	assert.Equal(t, models.NoContactID, j.ContactID)
	assert.Equal(t, journey.StageProspecting, j.Stage)
	assert.Equal(t, journey.SubstageProposalSent, j.Substage)
	assert.Equal(t, 35, j.Score)
	assert.Equal(t, fixedNow, j.Metadata.AnalyzedAt)

	j = svc.ClassifyRecords(context.Background(), models.CRMObject{ID: "d-9"}, &models.CRMObject{ID: "c-3", Properties: map[string]interface{}{"firstname": "Zed"}})
	assert.Equal(t, "c-3", j.ContactID)
	assert.Equal(t, "Zed", j.Metadata.ContactName)
	assert.Equal(t, journey.StageUnset, j.Stage)
	assert.Equal(t, 10, j.Score)
}
