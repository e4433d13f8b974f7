/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"time"

	// Register the decoders the canvas accepts.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

// Fetcher resolves remote image dimensions. It satisfies the editor's
// ImageSource so new image elements can be sized before insertion.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with a bounded timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: 20 * time.Second}}
}

// FetchSize downloads just enough of the image to decode its header and
// returns the pixel dimensions.
func (f *Fetcher) FetchSize(ctx context.Context, rawURL string) (int, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, 0, &ExternalServiceError{Op: "fetch", Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, 0, &ExternalServiceError{Op: "fetch", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, &ExternalServiceError{Op: "fetch", Status: resp.StatusCode,
			Err: fmt.Errorf("get %s", rawURL)}
	}
	// DecodeConfig reads only the header; cap the read defensively anyway.
	cfg, _, err := image.DecodeConfig(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Thumbnail downscales src so its longer edge is at most maxEdge pixels and
// encodes it as PNG. Images already small enough are re-encoded unscaled.
func Thumbnail(src image.Image, maxEdge int) ([]byte, error) {
	if maxEdge <= 0 {
		return nil, fmt.Errorf("thumbnail: maxEdge must be positive")
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxEdge || h > maxEdge {
		if w >= h {
			h = h * maxEdge / w
			w = maxEdge
		} else {
			w = w * maxEdge / h
			h = maxEdge
		}
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
		src = dst
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
