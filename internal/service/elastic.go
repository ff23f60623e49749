package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"storefront/internal/logger"
	"storefront/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

const DefaultProductIndex = "products"

// maxHits couvre largement le catalogue ; la pagination se fait côté store.
const maxHits = 1000

// ElasticIndex indexe le catalogue et répond aux recherches texte.
type ElasticIndex struct {
	client *elasticsearch.Client
	index  string
	logger *zap.Logger
}

func NewElasticIndex(client *elasticsearch.Client, index string, log *zap.Logger) *ElasticIndex {
	if index == "" {
		index = DefaultProductIndex
	}
	return &ElasticIndex{client: client, index: index, logger: logger.OrNop(log)}
}

type productDocument struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags"`
	CategoryID    string   `json:"categoryId"`
	SubcategoryID string   `json:"subcategoryId"`
}

// IndexProducts indexe (ou réindexe) chaque produit sous son id.
func (e *ElasticIndex) IndexProducts(ctx context.Context, products []models.Product) error {
	for i, p := range products {
		data, err := json.Marshal(productDocument{
			ID:            p.ID,
			Name:          p.Name,
			Description:   p.Description,
			Tags:          p.Tags,
			CategoryID:    p.CategoryID,
			SubcategoryID: p.SubcategoryID,
		})
		if err != nil {
			return err
		}

		req := esapi.IndexRequest{
			Index:      e.index,
			DocumentID: p.ID,
			Body:       bytes.NewReader(data),
		}
		// rend le lot visible dès la dernière écriture
		if i == len(products)-1 {
			req.Refresh = "true"
		}

		res, err := req.Do(ctx, e.client)
		if err != nil {
			return fmt.Errorf("indexation %s: %w", p.ID, err)
		}
		failed := res.IsError()
		status := res.String()
		res.Body.Close()
		if failed {
			return fmt.Errorf("indexation %s: %s", p.ID, status)
		}
	}

	e.logger.Info("catalogue indexé", zap.String("index", e.index), zap.Int("products", len(products)))
	return nil
}

// MatchIDs : sous-chaîne insensible à la casse dans le nom, la description ou les tags.
func (e *ElasticIndex) MatchIDs(ctx context.Context, query string) ([]string, error) {
	var buf bytes.Buffer
	q := map[string]interface{}{
		"size":    maxHits,
		"_source": false,
		"query": map[string]interface{}{
			"query_string": map[string]interface{}{
				"query":            "*" + escapeQueryString(strings.ToLower(query)) + "*",
				"fields":           []string{"name", "description", "tags"},
				"analyze_wildcard": true,
				"default_operator": "AND",
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		e.logger.Warn("recherche Elastic en erreur", zap.String("status", res.Status()))
		return nil, fmt.Errorf("recherche Elastic: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("erreur décodage JSON: %w", err)
	}

	ids := make([]string, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

var queryStringReserved = strings.NewReplacer(
	`\`, `\\`, `+`, `\+`, `-`, `\-`, `=`, `\=`, `&`, `\&`, `|`, `\|`,
	`>`, `\>`, `<`, `\<`, `!`, `\!`, `(`, `\(`, `)`, `\)`, `{`, `\{`,
	`}`, `\}`, `[`, `\[`, `]`, `\]`, `^`, `\^`, `"`, `\"`, `~`, `\~`,
	`*`, `\*`, `?`, `\?`, `:`, `\:`, `/`, `\/`, ` `, `\ `,
)

func escapeQueryString(s string) string {
	return queryStringReserved.Replace(s)
}
