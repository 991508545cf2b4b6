// Package search keeps an Elasticsearch index of the catalog and answers
// product searches from it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/rs/zerolog"

	"storefront/internal/models"
)

const DefaultLimit = 20

type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.Product, error)
}

const mapping = `{
  "mappings": {
    "properties": {
      "title":       {"type": "text"},
      "description": {"type": "text"},
      "price":       {"type": "double"},
      "imageUrl":    {"type": "keyword", "index": false}
    }
  }
}`

type Index struct {
	es    *elasticsearch.Client
	index string
	log   zerolog.Logger
}

func New(es *elasticsearch.Client, index string, log zerolog.Logger) *Index {
	return &Index{es: es, index: index, log: log}
}

// EnsureIndex creates the index with its mapping when it is missing.
func (x *Index) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{x.index}}.Do(ctx, x.es)
	if err != nil {
		return fmt.Errorf("search: index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	res, err = esapi.IndicesCreateRequest{Index: x.index, Body: strings.NewReader(mapping)}.Do(ctx, x.es)
	if err != nil {
		return fmt.Errorf("search: create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("search: create index: %s", res.String())
	}
	x.log.Info().Str("index", x.index).Msg("search index created")
	return nil
}

type source struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl"`
}

func (x *Index) Put(ctx context.Context, p models.Product) error {
	body, err := json.Marshal(source{Title: p.Title, Description: p.Description, Price: p.Price, ImageURL: p.ImageURL})
	if err != nil {
		return err
	}
	res, err := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: p.ID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, x.es)
	if err != nil {
		return fmt.Errorf("search: index %s: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("search: index %s: %s", p.ID, res.String())
	}
	return nil
}

// Remove deletes a product from the index; a product that is not indexed is
// not an error.
func (x *Index) Remove(ctx context.Context, id string) error {
	res, err := esapi.DeleteRequest{Index: x.index, DocumentID: id}.Do(ctx, x.es)
	if err != nil {
		return fmt.Errorf("search: delete %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("search: delete %s: %s", id, res.String())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string `json:"_id"`
			Source source `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search matches query against title and description, best match first.
func (x *Index) Search(ctx context.Context, query string, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var buf bytes.Buffer
	q := map[string]any{
		"size": limit,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"title^2", "description"},
				"fuzziness": "AUTO",
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, err
	}
	res, err := esapi.SearchRequest{Index: []string{x.index}, Body: &buf}.Do(ctx, x.es)
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search: query: %s %s", res.Status(), raw)
	}
	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("search: decode response: %w", err)
	}
	out := make([]models.Product, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		out = append(out, models.Product{
			ID:          h.ID,
			Title:       h.Source.Title,
			Description: h.Source.Description,
			Price:       h.Source.Price,
			ImageURL:    h.Source.ImageURL,
		})
	}
	return out, nil
}
