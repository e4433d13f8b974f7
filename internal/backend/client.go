/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ExternalServiceError wraps any transport or server failure talking to the
// backend, so callers can distinguish "service broken" from "document broken".
type ExternalServiceError struct {
	Op     string
	Status int // 0 when the request never reached the server
	Err    error
}

func (e *ExternalServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Client talks to the backend API. With Kind set to KindTemplate or
// KindProject it satisfies the editor's DocumentStore over that collection.
type Client struct {
	BaseURL string
	Token   string // bearer token
	Kind    string // collection for Load/SaveDocument, default KindProject
	client  *http.Client
}

// NewClient creates a backend client. baseURL may carry a trailing slash.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Kind:    KindProject,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) kind() string {
	if c.Kind == "" {
		return KindProject
	}
	return c.Kind
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, dest any) error {
	var rdr *bytes.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return &ExternalServiceError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return &ExternalServiceError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &ExternalServiceError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%s", apiErr.Error)}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &ExternalServiceError{Op: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// List returns the summaries of the client's collection.
func (c *Client) List(ctx context.Context) ([]Record, error) {
	var out []Record
	if err := c.do(ctx, "list", http.MethodGet, "/api/"+c.kind()+"s/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one full record including its document.
func (c *Client) Get(ctx context.Context, id string) (Record, error) {
	var rec Record
	if err := c.do(ctx, "get", http.MethodGet, "/api/"+c.kind()+"s/"+id, nil, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Put stores a full record under its id.
func (c *Client) Put(ctx context.Context, rec Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return &ExternalServiceError{Op: "put", Err: err}
	}
	return c.do(ctx, "put", http.MethodPut, "/api/"+c.kind()+"s/"+rec.ID, body, nil)
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, "/api/"+c.kind()+"s/"+id, nil, nil)
}

// LoadDocument implements the editor's persistence collaborator: it returns
// the raw canvas document bytes for the id.
func (c *Client) LoadDocument(ctx context.Context, id string) ([]byte, error) {
	rec, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Document, nil
}

// SaveDocument implements the editor's persistence collaborator: document and
// thumbnail are stored under the id, preserving any existing name.
func (c *Client) SaveDocument(ctx context.Context, id string, doc, thumbnail []byte) error {
	rec := Record{ID: id, Document: doc, Thumbnail: thumbnail}
	if prev, err := c.Get(ctx, id); err == nil {
		rec.Name = prev.Name
		rec.OwnerID = prev.OwnerID
	}
	return c.Put(ctx, rec)
}
