/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package images integrates stock photography into the editor: a search
// client for a Pexels-compatible API, plus decode helpers that size new image
// elements and render save thumbnails.
package images

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Photo is one search result the picker offers.
type Photo struct {
	ID           string
	ThumbnailURL string // small preview for the picker grid
	FullURL      string // full-resolution source inserted into the canvas
	Width        int
	Height       int
	Attribution  string // photographer credit, shown alongside the picker
}

// Provider searches a stock-photo catalog.
type Provider interface {
	Search(ctx context.Context, query string) ([]Photo, error)
}

// ExternalServiceError wraps photo API failures.
type ExternalServiceError struct {
	Op     string
	Status int
	Err    error
}

func (e *ExternalServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("images %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("images %s: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// PexelsClient talks to the Pexels photo search API (or a compatible mock).
type PexelsClient struct {
	BaseURL string
	APIKey  string
	PerPage int
	client  *http.Client
}

// NewPexelsClient creates a search client. baseURL is typically
// https://api.pexels.com/v1 (the configured images base URL).
func NewPexelsClient(baseURL, apiKey string) *PexelsClient {
	return &PexelsClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		PerPage: 24,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// pexels wire types, reduced to the fields the picker uses.
type pexelsResponse struct {
	Photos []struct {
		ID           int64  `json:"id"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		Photographer string `json:"photographer"`
		Src          struct {
			Large2x string `json:"large2x"`
			Medium  string `json:"medium"`
		} `json:"src"`
	} `json:"photos"`
}

// Search queries the catalog and maps the results to Photos.
func (c *PexelsClient) Search(ctx context.Context, query string) ([]Photo, error) {
	u, err := url.Parse(c.BaseURL + "/search")
	if err != nil {
		return nil, &ExternalServiceError{Op: "search", Err: err}
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("per_page", strconv.Itoa(c.PerPage))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &ExternalServiceError{Op: "search", Err: err}
	}
	req.Header.Set("Authorization", c.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ExternalServiceError{Op: "search", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, &ExternalServiceError{Op: "search", Status: resp.StatusCode,
			Err: fmt.Errorf("query %q", query)}
	}
	var body pexelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &ExternalServiceError{Op: "search", Err: err}
	}
	out := make([]Photo, 0, len(body.Photos))
	for _, p := range body.Photos {
		out = append(out, Photo{
			ID:           strconv.FormatInt(p.ID, 10),
			ThumbnailURL: p.Src.Medium,
			FullURL:      p.Src.Large2x,
			Width:        p.Width,
			Height:       p.Height,
			Attribution:  p.Photographer,
		})
	}
	return out, nil
}
