package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enxergar/outreach/internal/domain/entity"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the client checks this header to recognise a genuine Elasticsearch server
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return es
}

func TestDisabledIndexIsNoop(t *testing.T) {
	var idx *DeliveryIndex
	require.NoError(t, idx.Record(context.Background(), entity.Delivery{ID: "1"}))
	got, err := NewDeliveryIndex(nil, "deliveries", nil).Search(context.Background(), SearchQuery{Text: "x"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecord(t *testing.T) {
	var gotPath string
	var gotDoc entity.Delivery
	es := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotDoc)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	idx := NewDeliveryIndex(es, "deliveries", nil)
	err := idx.Record(context.Background(), entity.Delivery{ID: "d1", Channel: entity.TemplateSMS, Recipient: "5511999887766", Status: entity.DeliverySent})
	require.NoError(t, err)
	assert.Equal(t, "/deliveries/_doc/d1", gotPath)
	assert.Equal(t, "5511999887766", gotDoc.Recipient)
}

func TestSearch(t *testing.T) {
	var query string
	es := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		query = string(b)
		_, _ = w.Write([]byte(`{"hits":{"hits":[{"_id":"d1","_source":{"id":"d1","channel":"whatsapp","recipient":"5511999887766","status":"sent"}}]}}`))
	})

	got, err := NewDeliveryIndex(es, "deliveries", nil).Search(context.Background(), SearchQuery{Text: "5511", Channel: entity.TemplateWhatsApp})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entity.TemplateWhatsApp, got[0].Channel)
	assert.True(t, strings.Contains(query, `"channel":"whatsapp"`))
}

func TestSearchErrorStatus(t *testing.T) {
	es := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	})
	_, err := NewDeliveryIndex(es, "deliveries", nil).Search(context.Background(), SearchQuery{})
	assert.Error(t, err)
}

func TestUpdateStatus(t *testing.T) {
	var gotPath, body string
	es := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		_, _ = w.Write([]byte(`{"updated":1,"total":1}`))
	})

	at := time.Date(2024, 3, 14, 13, 0, 0, 0, time.UTC)
	n, err := NewDeliveryIndex(es, "deliveries", nil).UpdateStatus(context.Background(), "SM123", "delivered", at)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "/deliveries/_update_by_query", gotPath)
	assert.Contains(t, body, `"message_id":"SM123"`)
	assert.Contains(t, body, `"status":"delivered"`)
	assert.Contains(t, body, `"at":"2024-03-14T13:00:00Z"`)
}

func TestUpdateStatusDisabled(t *testing.T) {
	n, err := NewDeliveryIndex(nil, "", nil).UpdateStatus(context.Background(), "SM123", "delivered", time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}
