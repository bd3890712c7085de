package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/enxergar/outreach/internal/domain/entity"
)

// DeliveryIndex stores notification attempts in Elasticsearch for the admin history search.
type DeliveryIndex struct {
	ES     *elasticsearch.Client
	Index  string
	Logger *logrus.Logger
}

func NewDeliveryIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *DeliveryIndex {
	return &DeliveryIndex{ES: es, Index: index, Logger: logger}
}

func (d *DeliveryIndex) enabled() bool {
	return d != nil && d.ES != nil && d.Index != ""
}

// Record indexes one delivery. It is a no-op when Elasticsearch is not configured.
func (d *DeliveryIndex) Record(ctx context.Context, del entity.Delivery) error {
	if !d.enabled() {
		return nil
	}
	b, err := json.Marshal(del)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: d.Index, DocumentID: del.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, d.ES)
	if err != nil {
		return fmt.Errorf("es index delivery: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index delivery: %s", res.Status())
	}
	return nil
}

type SearchQuery struct {
	Text    string
	Channel entity.TemplateType
	Status  string
	Size    int
}

// Search runs a multi_match on recipient, name and template, filtered by channel and status.
func (d *DeliveryIndex) Search(ctx context.Context, q SearchQuery) ([]entity.Delivery, error) {
	if !d.enabled() {
		return []entity.Delivery{}, nil
	}
	if q.Size <= 0 || q.Size > 100 {
		q.Size = 20
	}

	must := []any{}
	if q.Text != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  q.Text,
				"fields": []string{"recipient^2", "recipient_name", "template_name", "job_id"},
			},
		})
	}
	var filter []any
	if q.Channel != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"channel": string(q.Channel)}})
	}
	if q.Status != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"status": q.Status}})
	}
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{"must": must, "filter": filter},
		},
		"sort": []any{map[string]any{"at": map[string]any{"order": "desc"}}},
		"size": q.Size,
	}
	b, _ := json.Marshal(body)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := d.ES.Search(
		d.ES.Search.WithContext(c),
		d.ES.Search.WithIndex(d.Index),
		d.ES.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, fmt.Errorf("es search deliveries: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search deliveries: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source entity.Delivery `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]entity.Delivery, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

const updateStatusScript = "ctx._source.provider_status = params.status; ctx._source.provider_status_at = params.at"

// UpdateStatus stamps the provider status on every delivery with messageID and
// returns how many documents changed.
func (d *DeliveryIndex) UpdateStatus(ctx context.Context, messageID, status string, at time.Time) (int, error) {
	if !d.enabled() || messageID == "" {
		return 0, nil
	}
	body := map[string]any{
		"query": map[string]any{"term": map[string]any{"message_id": messageID}},
		"script": map[string]any{
			"source": updateStatusScript,
			"lang":   "painless",
			"params": map[string]any{"status": status, "at": at.UTC().Format(time.RFC3339)},
		},
	}
	b, _ := json.Marshal(body)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req := esapi.UpdateByQueryRequest{Index: []string{d.Index}, Body: bytes.NewReader(b), Conflicts: "proceed"}
	res, err := req.Do(c, d.ES)
	if err != nil {
		return 0, fmt.Errorf("es update delivery status: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return 0, fmt.Errorf("es update delivery status: %s", res.Status())
	}
	var parsed struct {
		Updated int `json:"updated"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, err
	}
	return parsed.Updated, nil
}
