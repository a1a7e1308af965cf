package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leads-organizer-backend/config"
	"leads-organizer-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipedriveFake struct {
	existingPersonID int64
	persons          []map[string]any
	deals            []map[string]any
	tokens           []string
	findTerms        []string
}

func (f *pipedriveFake) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}
	decode := func(r *http.Request) map[string]any {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		return body
	}

	mux.HandleFunc("/v1/persons/find", func(w http.ResponseWriter, r *http.Request) {
		f.tokens = append(f.tokens, r.URL.Query().Get("api_token"))
		f.findTerms = append(f.findTerms, r.URL.Query().Get("term"))
		assert.Equal(t, "1", r.URL.Query().Get("search_by_email"))
		if f.existingPersonID == 0 {
			writeJSON(w, map[string]any{"success": true, "data": nil})
			return
		}
		writeJSON(w, map[string]any{"success": true, "data": []map[string]any{{"id": f.existingPersonID}}})
	})
	mux.HandleFunc("/v1/persons", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		f.tokens = append(f.tokens, r.URL.Query().Get("api_token"))
		f.persons = append(f.persons, decode(r))
		writeJSON(w, map[string]any{"success": true, "data": map[string]any{"id": 7}})
	})
	mux.HandleFunc("/v1/deals", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		f.tokens = append(f.tokens, r.URL.Query().Get("api_token"))
		f.deals = append(f.deals, decode(r))
		writeJSON(w, map[string]any{"success": true, "data": map[string]any{"id": 99}})
	})
	return mux
}

func newTestPipedrive(t *testing.T, fake *pipedriveFake) *PipedriveClient {
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	return NewPipedriveClient(config.PipedriveConfig{
		BaseURL:         srv.URL + "/v1/",
		APIToken:        "pd-token",
		OwnerUserID:     "365185",
		OriginFieldKey:  "origin_key",
		OriginValue:     "Site",
		MessageFieldKey: "message_key",
	}, WithTimeout(2*time.Second))
}

func strPtr(s string) *string { return &s }

func TestPipedriveClient_PropertyInquiry_NewPerson(t *testing.T) {
	fake := &pipedriveFake{}
	client := newTestPipedrive(t, fake)

	lead := &models.Lead{
		Name:          "Ana",
		Email:         "ana@x.com",
		Phone:         "111",
		PropertyID:    strPtr("AP-42"),
		PropertyTitle: strPtr("Casa nos Jardins"),
		PropertyPrice: strPtr("1.200.000"),
	}

	dealID, err := client.UpsertDealForLead(context.Background(), lead, models.SourcePropertyInquiry)
	require.NoError(t, err)
	assert.EqualValues(t, 99, dealID)

	assert.Equal(t, []string{"ana@x.com"}, fake.findTerms)
	for _, token := range fake.tokens {
		assert.Equal(t, "pd-token", token)
	}

	require.Len(t, fake.persons, 1)
	assert.Equal(t, "Ana", fake.persons[0]["name"])
	assert.Equal(t, "ana@x.com", fake.persons[0]["email"])
	assert.Equal(t, "111", fake.persons[0]["phone"])
	assert.Equal(t, "Site", fake.persons[0]["origin_key"])

	require.Len(t, fake.deals, 1)
	deal := fake.deals[0]
	assert.Equal(t, "Casa nos Jardins", deal["title"])
	assert.EqualValues(t, 60000, deal["value"])
	assert.EqualValues(t, 7, deal["person_id"])
	assert.EqualValues(t, 365185, deal["user_id"])
	assert.NotContains(t, deal, "message_key")
}

func TestPipedriveClient_ReusesExistingPerson(t *testing.T) {
	fake := &pipedriveFake{existingPersonID: 321}
	client := newTestPipedrive(t, fake)

	lead := &models.Lead{Name: "Bia", Email: "bia@x.com", Phone: "222"}
	_, err := client.UpsertDealForLead(context.Background(), lead, models.SourcePropertyInquiry)
	require.NoError(t, err)

	assert.Empty(t, fake.persons)
	require.Len(t, fake.deals, 1)
	assert.EqualValues(t, 321, fake.deals[0]["person_id"])
	assert.Equal(t, "Bia", fake.deals[0]["title"], "missing property title falls back to the lead name")
	assert.NotContains(t, fake.deals[0], "value", "no value without a price")
}

func TestPipedriveClient_Contact(t *testing.T) {
	fake := &pipedriveFake{existingPersonID: 5}
	client := newTestPipedrive(t, fake)

	lead := &models.Lead{Name: "Caio", Email: "caio@x.com", Phone: "333", Message: strPtr("Quero visitar")}
	_, err := client.UpsertDealForLead(context.Background(), lead, models.SourceContact)
	require.NoError(t, err)

	require.Len(t, fake.deals, 1)
	deal := fake.deals[0]
	assert.Equal(t, "Caio — website contact", deal["title"])
	assert.EqualValues(t, 0, deal["value"])
	assert.Equal(t, "Quero visitar", deal["message_key"])
}

func TestPipedriveClient_Errors(t *testing.T) {
	lead := &models.Lead{Name: "Ana", Email: "ana@x.com", Phone: "111"}

	t.Run("non-2xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"error":"boom"}`))
		}))
		defer srv.Close()

		client := NewPipedriveClient(config.PipedriveConfig{BaseURL: srv.URL, APIToken: "t"})
		_, err := client.UpsertDealForLead(context.Background(), lead, models.SourceContact)

		var connErr *ConnectorError
		require.ErrorAs(t, err, &connErr)
		assert.Equal(t, models.ConnectorPipedrive, connErr.Connector)
		assert.Equal(t, "find person", connErr.Op)
		assert.Equal(t, http.StatusInternalServerError, connErr.StatusCode)
		assert.ErrorIs(t, err, ErrUnexpectedResponse)
	})

	t.Run("success false", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":false,"error":"unauthorized"}`))
		}))
		defer srv.Close()

		client := NewPipedriveClient(config.PipedriveConfig{BaseURL: srv.URL, APIToken: "t"})
		_, err := client.UpsertDealForLead(context.Background(), lead, models.SourceContact)
		assert.ErrorIs(t, err, ErrUnexpectedResponse)
		assert.ErrorContains(t, err, "unauthorized")
	})

	t.Run("missing deal id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Path == "/persons/find" {
				_, _ = w.Write([]byte(`{"success":true,"data":[{"id":1}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"data":null}`))
		}))
		defer srv.Close()

		client := NewPipedriveClient(config.PipedriveConfig{BaseURL: srv.URL, APIToken: "t"})
		_, err := client.UpsertDealForLead(context.Background(), lead, models.SourceContact)

		var connErr *ConnectorError
		require.ErrorAs(t, err, &connErr)
		assert.Equal(t, "create deal", connErr.Op)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
		}))
		defer srv.Close()

		client := NewPipedriveClient(config.PipedriveConfig{BaseURL: srv.URL}, WithTimeout(50*time.Millisecond))
		_, err := client.UpsertDealForLead(context.Background(), lead, models.SourceContact)

		var connErr *ConnectorError
		require.ErrorAs(t, err, &connErr)
		assert.Zero(t, connErr.StatusCode)
	})
}
