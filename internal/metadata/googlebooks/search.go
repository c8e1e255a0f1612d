package googlebooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Search runs a free-text volume search. The decoded body is returned in
// SearchResult.Raw unchanged; numbers are kept as json.Number so they
// re-encode exactly.
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, wrapError("search", "", ErrBadRequest)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(c.maxResults))

	body, err := c.doRequest(ctx, "/volumes", params)
	if err != nil {
		return nil, wrapError("search", "", err)
	}

	raw := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, wrapError("search", "", fmt.Errorf("parse response: %w", err))
	}

	result := &SearchResult{Raw: raw}
	if items, ok := raw["items"].([]any); ok {
		result.ItemCount = len(items)
	}
	if total, ok := raw["totalItems"].(json.Number); ok {
		if n, err := total.Int64(); err == nil {
			result.TotalItems = int(n)
		}
	}

	return result, nil
}

// GetVolume retrieves a single volume by its catalog id.
// A volume without volumeInfo or a title yields ErrIncomplete.
func (c *Client) GetVolume(ctx context.Context, id string) (*Volume, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, "/?#") {
		return nil, wrapError("getVolume", id, ErrNotFound)
	}

	body, err := c.doRequest(ctx, "/volumes/"+url.PathEscape(id), nil)
	if errors.Is(err, ErrBadRequest) {
		// The API answers 400 rather than 404 for malformed volume ids.
		err = ErrNotFound
	}
	if err != nil {
		return nil, wrapError("getVolume", id, err)
	}

	var volume Volume
	if err := json.Unmarshal(body, &volume); err != nil {
		return nil, wrapError("getVolume", id, fmt.Errorf("parse response: %w", err))
	}

	if volume.VolumeInfo == nil || strings.TrimSpace(volume.VolumeInfo.Title) == "" {
		return nil, wrapError("getVolume", id, ErrIncomplete)
	}
	if volume.ID == "" {
		volume.ID = id
	}

	return &volume, nil
}
