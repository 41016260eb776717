package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// IndexVersion tracks the current mapping version, stored in each index's
// mapping _meta. Increment it whenever index mappings change.
const IndexVersion = 1

// CheckIndexVersion reports whether any index is missing or was created with
// an older mapping.
func (c *Client) CheckIndexVersion(ctx context.Context) (bool, error) {
	for _, name := range []string{IndexPosts, IndexCommunities} {
		version, err := c.indexVersion(ctx, name)
		if err != nil {
			return false, err
		}
		if version < IndexVersion {
			return true, nil
		}
	}
	return false, nil
}

// indexVersion returns 0 for a missing index.
func (c *Client) indexVersion(ctx context.Context, name string) (int, error) {
	res, err := c.es.Indices.GetMapping(
		c.es.Indices.GetMapping.WithIndex(name),
		c.es.Indices.GetMapping.WithContext(ctx),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to get index mapping: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if err := responseError("getting mapping", res); err != nil {
		return 0, err
	}

	var mappings map[string]struct {
		Mappings struct {
			Meta struct {
				Version int `json:"version"`
			} `json:"_meta"`
		} `json:"mappings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&mappings); err != nil {
		// Unreadable mappings are treated as outdated.
		return 0, nil
	}
	return mappings[name].Mappings.Meta.Version, nil
}

// RecreateIndices drops and recreates every index. Callers reindex after.
func (c *Client) RecreateIndices(ctx context.Context) error {
	res, err := c.es.Indices.Delete([]string{IndexPosts, IndexCommunities},
		c.es.Indices.Delete.WithIgnoreUnavailable(true),
		c.es.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to delete indices: %w", err)
	}
	res.Body.Close()

	return c.InitializeIndices(ctx)
}
