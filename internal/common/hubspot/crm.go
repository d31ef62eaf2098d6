package hubspot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	commonhttp "journey-board/internal/common/http"
	"journey-board/internal/models"
)

const (
	DefaultBaseURL = "https://api.hubapi.com"

	objectDeals    = "deals"
	objectContacts = "contacts"

	maxPageLimit        = 100
	maxAssociationPages = 20
)

// ErrNotFound is returned when the CRM answers 404 for a record.
var ErrNotFound = errors.New("hubspot: object not found")

// APIError is a non-2xx CRM response.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("failed to %s (status %d): %s", e.Operation, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// CRMClient reads deals, contacts and deal-contact associations from the HubSpot CRM API using a
// private app access token.
type CRMClient struct {
	accessToken string
	baseURL     string
	httpClient  *commonhttp.Client
	maxRetries  uint64
	retryBase   time.Duration
}

type Option func(*CRMClient)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *CRMClient) {
		c.httpClient = commonhttp.Wrap(hc)
	}
}

// WithRetry sets the retry budget for 429 and 5xx responses. base is the fibonacci backoff unit.
func WithRetry(maxRetries int, base time.Duration) Option {
	return func(c *CRMClient) {
		if maxRetries < 0 {
			maxRetries = 0
		}
		c.maxRetries = uint64(maxRetries)
		if base > 0 {
			c.retryBase = base
		}
	}
}

func NewCRMClient(baseURL, accessToken string, timeout time.Duration, opts ...Option) *CRMClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &CRMClient{
		accessToken: accessToken,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  commonhttp.NewClient(timeout),
		maxRetries:  3,
		retryBase:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type listResponse struct {
	Results []models.CRMObject `json:"results"`
	Paging  *paging            `json:"paging,omitempty"`
}

type paging struct {
	Next *struct {
		After string `json:"after"`
	} `json:"next,omitempty"`
}

func (p *paging) after() string {
	if p == nil || p.Next == nil {
		return ""
	}
	return p.Next.After
}

type associationResponse struct {
	Results []struct {
		ToObjectID json.Number `json:"toObjectId"`
	} `json:"results"`
	Paging *paging `json:"paging,omitempty"`
}

// GetDeal fetches one deal with the properties the classifier reads.
func (c *CRMClient) GetDeal(ctx context.Context, dealID string) (*models.CRMObject, error) {
	return c.getObject(ctx, objectDeals, dealID, models.DealProperties)
}

// GetContact fetches one contact with the properties the classifier reads.
func (c *CRMClient) GetContact(ctx context.Context, contactID string) (*models.CRMObject, error) {
	return c.getObject(ctx, objectContacts, contactID, models.ContactProperties)
}

func (c *CRMClient) getObject(ctx context.Context, objectType, id string, properties []string) (*models.CRMObject, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%s id is required", objectType)
	}

	path := fmt.Sprintf("/crm/v3/objects/%s/%s", objectType, url.PathEscape(id))
	query := url.Values{}
	query.Set("properties", strings.Join(properties, ","))

	var obj models.CRMObject
	if err := c.get(ctx, "get "+singular(objectType), path, query, &obj); err != nil {
		return nil, err
	}
	if obj.ID == "" {
		obj.ID = id
	}
	if obj.Properties == nil {
		obj.Properties = map[string]interface{}{}
	}
	return &obj, nil
}

// ListDealContactIDs returns every contact associated with a deal, following pagination.
func (c *CRMClient) ListDealContactIDs(ctx context.Context, dealID string) ([]string, error) {
	path := fmt.Sprintf("/crm/v4/objects/deals/%s/associations/contacts", url.PathEscape(dealID))

	ids := []string{}
	after := ""
	for page := 0; page < maxAssociationPages; page++ {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(maxPageLimit))
		if after != "" {
			query.Set("after", after)
		}

		var resp associationResponse
		if err := c.get(ctx, "list deal associations", path, query, &resp); err != nil {
			return nil, err
		}
		for _, r := range resp.Results {
			if id := r.ToObjectID.String(); id != "" {
				ids = append(ids, id)
			}
		}

		after = resp.Paging.after()
		if after == "" {
			return ids, nil
		}
	}
	return ids, nil
}

// FirstDealContactID returns the first associated contact, or "" when the deal has none.
func (c *CRMClient) FirstDealContactID(ctx context.Context, dealID string) (string, error) {
	ids, err := c.ListDealContactIDs(ctx, dealID)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}

// ListDeals returns one page of deals.
func (c *CRMClient) ListDeals(ctx context.Context, limit int, after string) (*models.Page, error) {
	return c.listObjects(ctx, objectDeals, limit, after, models.DealProperties)
}

// ListContacts returns one page of contacts.
func (c *CRMClient) ListContacts(ctx context.Context, limit int, after string) (*models.Page, error) {
	return c.listObjects(ctx, objectContacts, limit, after, models.ContactProperties)
}

func (c *CRMClient) listObjects(ctx context.Context, objectType string, limit int, after string, properties []string) (*models.Page, error) {
	if limit <= 0 || limit > maxPageLimit {
		limit = maxPageLimit
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("properties", strings.Join(properties, ","))
	if after != "" {
		query.Set("after", after)
	}

	var resp listResponse
	if err := c.get(ctx, "list "+objectType, "/crm/v3/objects/"+objectType, query, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		resp.Results = []models.CRMObject{}
	}
	return &models.Page{Results: resp.Results, Next: resp.Paging.after()}, nil
}

// TestConnection performs the cheapest authenticated call available.
func (c *CRMClient) TestConnection(ctx context.Context) error {
	query := url.Values{}
	query.Set("limit", "1")
	var resp listResponse
	if err := c.get(ctx, "test connection", "/crm/v3/objects/"+objectDeals, query, &resp); err != nil {
		return fmt.Errorf("hubspot connection failed: %w", err)
	}
	return nil
}

// get retries 429, 5xx and transport failures with fibonacci backoff. 404 and other statuses
// fail immediately.
func (c *CRMClient) get(ctx context.Context, operation, path string, query url.Values, out interface{}) error {
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewFibonacci(c.retryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.getOnce(ctx, operation, path, query, out)
		if err == nil {
			return nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if apiErr.Retryable() {
				return retry.RetryableError(err)
			}
			return err
		}

		var urlErr *url.Error
		if errors.As(err, &urlErr) && ctx.Err() == nil {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *CRMClient) getOnce(ctx context.Context, operation, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req, operation)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", operation, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Operation: operation, StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func singular(objectType string) string {
	return strings.TrimSuffix(objectType, "s")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
