package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/communehq/commune/internal/metrics"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Index names
const (
	IndexPosts       = "commune-posts"
	IndexCommunities = "commune-communities"
)

// Query is one page of a full-text search.
type Query struct {
	Text   string `json:"q"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// Result lists matching document ids, best first.
type Result struct {
	IDs   []string `json:"ids"`
	Total int      `json:"total"`
}

// Searcher runs full-text queries. Handlers hydrate the ids from the store.
type Searcher interface {
	SearchPosts(ctx context.Context, q Query) (*Result, error)
	SearchCommunities(ctx context.Context, q Query) (*Result, error)
}

// Indexer keeps documents in sync with the store.
type Indexer interface {
	IndexPost(ctx context.Context, doc PostDoc) error
	DeletePost(ctx context.Context, postID string) error
	IndexCommunity(ctx context.Context, doc CommunityDoc) error
}

// Client wraps the Elasticsearch client with Commune-specific functionality
type Client struct {
	es *elasticsearch.Client
}

var (
	_ Searcher = (*Client)(nil)
	_ Indexer  = (*Client)(nil)
)

// NewClient creates a new Elasticsearch client for url. Requests are traced
// through otelhttp.
func NewClient(url string) (*Client, error) {
	if url == "" {
		url = "http://localhost:9200"
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	return &Client{es: es}, nil
}

// Ping verifies the cluster is reachable
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Info(c.es.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch info: %s", res.Status())
	}
	return nil
}

// InitializeIndices creates missing indices with their mappings
func (c *Client) InitializeIndices(ctx context.Context) error {
	for name, mapping := range indexMappings() {
		if err := c.createIndex(ctx, name, mapping); err != nil {
			return fmt.Errorf("failed to create %s index: %w", name, err)
		}
	}
	return nil
}

func indexMappings() map[string]map[string]interface{} {
	keyword := map[string]interface{}{"type": "keyword"}
	integer := map[string]interface{}{"type": "integer"}
	date := map[string]interface{}{"type": "date"}
	text := map[string]interface{}{"type": "text", "analyzer": "standard"}
	meta := map[string]interface{}{"version": IndexVersion}

	return map[string]map[string]interface{}{
		IndexPosts: {
			"mappings": map[string]interface{}{
				"_meta": meta,
				"properties": map[string]interface{}{
					"id":             keyword,
					"user_id":        keyword,
					"username":       keyword,
					"community_id":   keyword,
					"content":        text,
					"hashtags":       keyword,
					"reaction_count": integer,
					"comment_count":  integer,
					"created_at":     date,
				},
			},
		},
		IndexCommunities: {
			"mappings": map[string]interface{}{
				"_meta": meta,
				"properties": map[string]interface{}{
					"id":   keyword,
					"slug": keyword,
					"name": map[string]interface{}{
						"type":     "text",
						"analyzer": "standard",
						"fields": map[string]interface{}{
							"keyword": keyword,
						},
					},
					"description":  text,
					"tags":         keyword,
					"member_count": integer,
					"created_at":   date,
				},
			},
		},
	}
}

// createIndex creates an Elasticsearch index with the given mapping
func (c *Client) createIndex(ctx context.Context, indexName string, mapping map[string]interface{}) error {
	res, err := c.es.Indices.Exists([]string{indexName}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err = c.es.Indices.Create(indexName,
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	return responseError("creating index", res)
}

// IndexPost indexes a post document for search
func (c *Client) IndexPost(ctx context.Context, doc PostDoc) error {
	return c.index(ctx, IndexPosts, doc.ID, doc)
}

// IndexCommunity indexes a community document for search
func (c *Client) IndexCommunity(ctx context.Context, doc CommunityDoc) error {
	return c.index(ctx, IndexCommunities, doc.ID, doc)
}

func (c *Client) index(ctx context.Context, indexName, id string, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := c.es.Index(indexName, bytes.NewReader(body),
		c.es.Index.WithDocumentID(id),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	return responseError("indexing "+indexName, res)
}

// DeletePost deletes a post document from the search index
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	res, err := c.es.Delete(IndexPosts, postID, c.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	defer res.Body.Close()

	// Already gone is fine.
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	return responseError("deleting post", res)
}

// SearchPosts matches post content fuzzily and hashtags exactly
func (c *Client) SearchPosts(ctx context.Context, q Query) (*Result, error) {
	tag := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(q.Text), "#"))
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []map[string]interface{}{
					{"match": map[string]interface{}{
						"content": map[string]interface{}{
							"query":     q.Text,
							"fuzziness": "AUTO",
						},
					}},
					{"term": map[string]interface{}{
						"hashtags": map[string]interface{}{
							"value": tag,
							"boost": 2.0,
						},
					}},
				},
				"minimum_should_match": 1,
			},
		},
		"sort": []map[string]interface{}{
			{"_score": map[string]interface{}{"order": "desc"}},
			{"created_at": map[string]interface{}{"order": "desc"}},
		},
	}
	return c.search(ctx, IndexPosts, "posts", q, body)
}

// SearchCommunities matches community names, descriptions and tags
func (c *Client) SearchCommunities(ctx context.Context, q Query) (*Result, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     q.Text,
				"fields":    []string{"name^3", "tags^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"sort": []map[string]interface{}{
			{"_score": map[string]interface{}{"order": "desc"}},
			{"member_count": map[string]interface{}{"order": "desc"}},
		},
	}
	return c.search(ctx, IndexCommunities, "communities", q, body)
}

func (c *Client) search(ctx context.Context, indexName, kind string, q Query, body map[string]interface{}) (*Result, error) {
	start := time.Now()
	defer func() {
		metrics.Get().SearchDuration.WithLabelValues("elasticsearch", kind).Observe(time.Since(start).Seconds())
	}()
	metrics.Get().SearchRequests.WithLabelValues("elasticsearch", kind).Inc()

	body["from"] = q.Offset
	body["size"] = q.Limit

	queryJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(indexName),
		c.es.Search.WithBody(bytes.NewReader(queryJSON)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if err := responseError("searching "+kind, res); err != nil {
		return nil, err
	}

	var searchResp struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	result := &Result{IDs: make([]string, 0, len(searchResp.Hits.Hits)), Total: searchResp.Hits.Total.Value}
	for _, hit := range searchResp.Hits.Hits {
		result.IDs = append(result.IDs, hit.ID)
	}
	return result, nil
}

// responseError turns an error response into a Go error carrying the
// cluster's error reason.
func responseError(action string, res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	raw, _ := io.ReadAll(res.Body)
	var errResp struct {
		Error interface{} `json:"error"`
	}
	if err := json.Unmarshal(raw, &errResp); err != nil || errResp.Error == nil {
		return fmt.Errorf("error %s [%s]", action, res.Status())
	}
	return fmt.Errorf("error %s: [%s] %v", action, res.Status(), errResp.Error)
}
