/*
Copyright The Craftfetch Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package getter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/pkg/errors"

	"github.com/craftfetch/craftfetch/internal/version"
)

// HTTPGetter is the default HTTP(/S) backend handler.
type HTTPGetter struct {
	opts      options
	transport *http.Transport
	once      sync.Once
}

// NewHTTPGetter constructs a valid http/https client as a Getter.
func NewHTTPGetter(opts ...Option) (Getter, error) {
	var client HTTPGetter
	client.opts.timeout = DefaultHTTPTimeout

	for _, opt := range opts {
		opt(&client.opts)
	}

	return &client, nil
}

// Get fetches a document in full and returns the body.
func (g *HTTPGetter) Get(ctx context.Context, href string) (*bytes.Buffer, error) {
	body, err := g.open(ctx, href, nil)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, body); err != nil {
		return nil, errors.Wrapf(err, "reading body of %s", href)
	}
	return buf, nil
}

// Stream opens the body of href for sequential reading.
func (g *HTTPGetter) Stream(ctx context.Context, href string) (io.ReadCloser, error) {
	return g.open(ctx, href, nil)
}

// StreamRange opens the inclusive byte range [start, end] of href.
//
// The server must honor the Range header: a 200 response carrying the whole
// body would be silently mis-spliced by a chunked caller, so anything other
// than 206 Partial Content is an error.
func (g *HTTPGetter) StreamRange(ctx context.Context, href string, start, end int64) (io.ReadCloser, error) {
	header := http.Header{"Range": []string{fmt.Sprintf("bytes=%d-%d", start, end)}}

	req, err := g.newRequest(ctx, http.MethodGet, href, header)
	if err != nil {
		return nil, err
	}

	resp, err := g.client().Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, errors.Errorf("range request to %s not honored: %s", href, resp.Status)
	}
	return resp.Body, nil
}

// ContentLength issues a HEAD request and returns the reported size of href.
func (g *HTTPGetter) ContentLength(ctx context.Context, href string) (int64, error) {
	req, err := g.newRequest(ctx, http.MethodHead, href, nil)
	if err != nil {
		return 0, err
	}

	resp, err := g.client().Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, errors.Errorf("failed to probe %s : %s", href, resp.Status)
	}
	if resp.ContentLength < 0 {
		return 0, nil
	}
	return resp.ContentLength, nil
}

func (g *HTTPGetter) open(ctx context.Context, href string, header http.Header) (io.ReadCloser, error) {
	req, err := g.newRequest(ctx, http.MethodGet, href, header)
	if err != nil {
		return nil, err
	}

	resp, err := g.client().Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Errorf("failed to fetch %s : %s", href, resp.Status)
	}
	return resp.Body, nil
}

func (g *HTTPGetter) newRequest(ctx context.Context, method, href string, header http.Header) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, href, nil)
	if err != nil {
		return nil, err
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	// Set a craftfetch specific user agent so that a server and metrics can
	// separate craftfetch calls from other tools interacting with it.
	req.Header.Set("User-Agent", version.GetUserAgent())
	if g.opts.userAgent != "" {
		req.Header.Set("User-Agent", g.opts.userAgent)
	}
	if g.opts.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.opts.accessToken)
	}
	return req, nil
}

func (g *HTTPGetter) client() *http.Client {
	if g.opts.transport != nil {
		return &http.Client{
			Transport: g.opts.transport,
			Timeout:   g.opts.timeout,
		}
	}

	// Use a shared transport so connections are pooled across requests.
	g.once.Do(func() {
		g.transport = &http.Transport{
			DisableCompression: true,
			Proxy:              http.ProxyFromEnvironment,
		}
	})

	return &http.Client{
		Transport: g.transport,
		Timeout:   g.opts.timeout,
	}
}
