package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"journey-board/internal/app/analyzer"
	"journey-board/internal/common/errors"
	"journey-board/internal/common/validation"
	"journey-board/internal/journey"
	"journey-board/internal/models"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 1 << 20

var classifyValidator = validation.MustValidator(validation.ClassifyRequestSchema)

type classifyRequest struct {
	Deal    models.CRMObject  `json:"deal"`
	Contact *models.CRMObject `json:"contact"`
}

type stagesResponse struct {
	Stages []journey.StageDefinition `json:"stages"`
}

type statusResponse struct {
	Status           string `json:"status"`
	HubSpotConnected bool   `json:"hubspotConnected"`
	Cache            string `json:"cache"`
	Timestamp        string `json:"timestamp"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// ready reports 503 until the CRM answers.
func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := s.deps.CRM.TestConnection(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "hubspot unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp := statusResponse{
		Status:    "ok",
		Cache:     "disabled",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.deps.CRM.TestConnection(ctx); err != nil {
		s.log.Warn("hubspot connection check failed", map[string]interface{}{"error": err.Error()})
		resp.Status = "degraded"
	} else {
		resp.HubSpotConnected = true
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Ping(ctx); err != nil {
			resp.Cache = "unavailable"
			resp.Status = "degraded"
		} else {
			resp.Cache = "connected"
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) stages(c *gin.Context) {
	c.JSON(http.StatusOK, stagesResponse{Stages: journey.Stages()})
}

func (s *Server) getJourney(c *gin.Context) {
	contactID := c.Query("contactId")
	if contactID == "" {
		contactID = c.Query("contact_id")
	}
	refresh, _ := strconv.ParseBool(c.Query("refresh"))

	j, err := s.deps.Analyzer.Analyze(c.Request.Context(), analyzer.Request{
		DealID:    c.Param("dealId"),
		ContactID: contactID,
		Refresh:   refresh,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

func (s *Server) classify(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		writeError(c, errors.NewValidationFailedError("unreadable request body"))
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		writeError(c, errors.NewMissingInputError("deal"))
		return
	}

	if result := classifyValidator.ValidateBytes(body); !result.Valid {
		writeError(c, errors.NewValidationFailedError(result.Summary()))
		return
	}

	var req classifyRequest
	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(c, errors.NewValidationFailedError(err.Error()))
		return
	}

	j := s.deps.Analyzer.ClassifyRecords(c.Request.Context(), req.Deal, req.Contact)
	c.JSON(http.StatusOK, j)
}

func (s *Server) listDeals(c *gin.Context) {
	s.listPage(c, "deals", s.deps.CRM.ListDeals)
}

func (s *Server) listContacts(c *gin.Context) {
	s.listPage(c, "contacts", s.deps.CRM.ListContacts)
}

type pageFunc func(ctx context.Context, limit int, after string) (*models.Page, error)

func (s *Server) listPage(c *gin.Context, objectType string, list pageFunc) {
	limit := s.pageLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(c, errors.NewValidationFailedError("limit must be a positive integer"))
			return
		}
		if n < limit {
			limit = n
		}
	}

	page, err := list(c.Request.Context(), limit, c.Query("after"))
	if err != nil {
		writeError(c, errors.NewUpstreamFailureError("list "+objectType, err))
		return
	}
	if page.Results == nil {
		page.Results = []models.CRMObject{}
	}
	c.JSON(http.StatusOK, page)
}
