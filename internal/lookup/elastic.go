// Package lookup resolves topics into literature citations by querying an
// Elasticsearch literature index. Lookup is strictly best-effort: every
// failure collapses to an empty result so draft creation never depends on
// the index being reachable.
package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/models"
)

// Index wraps go-elasticsearch with the two-step citation fetch: a relevance
// search for document ids, then a multi-get for the citation details.
type Index struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
}

// New instantiates the literature index client.
func New(addr, index string, logger *slog.Logger) (*Index, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{addr},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Index{es: es, index: index, log: logger}, nil
}

// Citations finds up to max references backing the topic. Transport and
// decode failures are logged and degrade to an empty slice.
func (i *Index) Citations(ctx context.Context, topic string, max int) []models.Citation {
	if max <= 0 {
		max = 3
	}

	ids, err := i.search(ctx, topic, max)
	if err != nil {
		i.log.Warn("literature search failed", slog.String("topic", topic), slog.Any("err", err))
		return nil
	}
	if len(ids) == 0 {
		return nil
	}

	citations, err := i.fetch(ctx, ids)
	if err != nil {
		i.log.Warn("literature detail fetch failed", slog.Any("err", err))
		return nil
	}
	return citations
}

func (i *Index) search(ctx context.Context, topic string, max int) ([]string, error) {
	body := map[string]any{
		"size":    max,
		"_source": false,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  topic,
				"fields": []string{"title^2", "abstract"},
			},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.index),
		i.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		if hit.ID != "" {
			ids = append(ids, hit.ID)
		}
	}
	return ids, nil
}

func (i *Index) fetch(ctx context.Context, ids []string) ([]models.Citation, error) {
	body := map[string]any{"ids": ids}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal mget body: %w", err)
	}

	req := esapi.MgetRequest{
		Index: i.index,
		Body:  bytes.NewReader(payload),
	}

	res, err := req.Do(ctx, i.es)
	if err != nil {
		return nil, fmt.Errorf("mget: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("mget failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Docs []struct {
			ID     string `json:"_id"`
			Found  bool   `json:"found"`
			Source struct {
				Title   string `json:"title"`
				Journal string `json:"journal"`
				Year    string `json:"year"`
				URL     string `json:"url"`
			} `json:"_source"`
		} `json:"docs"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode mget response: %w", err)
	}

	citations := make([]models.Citation, 0, len(parsed.Docs))
	for _, doc := range parsed.Docs {
		if !doc.Found || doc.Source.Title == "" {
			continue
		}
		url := doc.Source.URL
		if url == "" {
			// Mirrors the PubMed convention: ids in the index are PMIDs.
			url = fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", doc.ID)
		}
		citations = append(citations, models.Citation{
			Title:  doc.Source.Title,
			Source: doc.Source.Journal,
			Year:   doc.Source.Year,
			URL:    url,
		})
	}
	return citations, nil
}
