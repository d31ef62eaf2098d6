package hubspot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*CRMClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewCRMClient(srv.URL, "pat-test", 2*time.Second, WithRetry(2, time.Millisecond)), srv
}

func TestGetDeal(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/crm/v3/objects/deals/123", r.URL.Path)
		assert.Equal(t, "Bearer pat-test", r.Header.Get("Authorization"))

		props := strings.Split(r.URL.Query().Get("properties"), ",")
		assert.Contains(t, props, "dealstage")
		assert.Contains(t, props, "first_deposit_date")
		assert.Contains(t, props, "hs_date_entered_current_stage")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"123","properties":{"dealstage":"closedwon","amount":"50000","proposal_sent":null},"archived":false}`)
	})

	deal, err := client.GetDeal(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "123", deal.ID)
	assert.Equal(t, "closedwon", deal.Properties["dealstage"])
	assert.Equal(t, "50000", deal.Properties["amount"])
	assert.Nil(t, deal.Properties["proposal_sent"])
}

func TestGetContact_NotFound(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/crm/v3/objects/contacts/999", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status":"error","message":"Object not found"}`)
	})

	_, err := client.GetContact(context.Background(), "999")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "404 must not be retried")
}

func TestGetDeal_EmptyID(t *testing.T) {
	client := NewCRMClient("http://127.0.0.1:1", "pat", time.Second)
	_, err := client.GetDeal(context.Background(), "  ")
	require.Error(t, err)
}

func TestRetryOnServerErrors(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		wantErr    bool
		wantStatus int
		wantCalls  int32
	}{
		{"recovers after 503", []int{http.StatusServiceUnavailable, http.StatusOK}, false, 0, 2},
		{"recovers after 429", []int{http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusOK}, false, 0, 3},
		{"gives up after budget", []int{500, 500, 500, 500}, true, 500, 3},
		{"401 fails fast", []int{http.StatusUnauthorized}, true, http.StatusUnauthorized, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				status := tt.statuses[len(tt.statuses)-1]
				if int(n) <= len(tt.statuses) {
					status = tt.statuses[n-1]
				}
				w.WriteHeader(status)
				if status == http.StatusOK {
					fmt.Fprint(w, `{"id":"1","properties":{}}`)
					return
				}
				fmt.Fprint(w, `{"message":"nope"}`)
			})

			_, err := client.GetDeal(context.Background(), "1")
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Contains(t, apiErr.Error(), "nope")
		})
	}
}

func TestListDealContactIDs_Paginates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/crm/v4/objects/deals/77/associations/contacts", r.URL.Path)
		switch r.URL.Query().Get("after") {
		case "":
			fmt.Fprint(w, `{"results":[{"toObjectId":501,"associationTypes":[]},{"toObjectId":502}],"paging":{"next":{"after":"cursor-2"}}}`)
		case "cursor-2":
			fmt.Fprint(w, `{"results":[{"toObjectId":"503"}]}`)
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("after"))
		}
	})

	ids, err := client.ListDealContactIDs(context.Background(), "77")
	require.NoError(t, err)
	assert.Equal(t, []string{"501", "502", "503"}, ids)

	first, err := client.FirstDealContactID(context.Background(), "77")
	require.NoError(t, err)
	assert.Equal(t, "501", first)
}

func TestFirstDealContactID_None(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[]}`)
	})

	id, err := client.FirstDealContactID(context.Background(), "77")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestListDeals(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/crm/v3/objects/deals", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "abc", r.URL.Query().Get("after"))
		fmt.Fprint(w, `{"results":[{"id":"1","properties":{"dealname":"A"}},{"id":"2","properties":{"dealname":"B"}}],"paging":{"next":{"after":"def","link":"x"}}}`)
	})

	page, err := client.ListDeals(context.Background(), 500, "abc")
	require.NoError(t, err)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "B", page.Results[1].Properties["dealname"])
	assert.Equal(t, "def", page.Next)
}

func TestListContacts_LastPage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/crm/v3/objects/contacts", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"results":[]}`)
	})

	page, err := client.ListContacts(context.Background(), 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Results)
	assert.NotNil(t, page.Results)
	assert.Empty(t, page.Next)
}

func TestTestConnection(t *testing.T) {
	ok, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"results":[]}`)
	})
	assert.NoError(t, ok.TestConnection(context.Background()))

	denied, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	err := denied.TestConnection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hubspot connection failed")
}

func TestContextCancellationStopsRetries(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetDeal(ctx, "1")
	require.Error(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestMalformedBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{not json`)
	})

	_, err := client.GetDeal(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}
