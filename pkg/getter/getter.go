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

// Package getter provides the HTTP transport used for all remote fetches:
// metadata documents, whole files, byte ranges, and size probes.
package getter // import "github.com/craftfetch/craftfetch/pkg/getter"

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// options are generic parameters provided to the getter during instantiation.
type options struct {
	userAgent   string
	accessToken string
	timeout     time.Duration
	transport   *http.Transport
}

// Option allows specifying various settings configurable by the user for
// overriding the defaults used when performing fetch operations.
type Option func(*options)

// WithUserAgent sets the request's User-Agent header to use the provided
// agent name.
func WithUserAgent(userAgent string) Option {
	return func(opts *options) {
		opts.userAgent = userAgent
	}
}

// WithBearerToken sets the request's Authorization header to the provided
// bearer credential. Only protected endpoints need it; the public version
// metadata does not.
func WithBearerToken(token string) Option {
	return func(opts *options) {
		opts.accessToken = token
	}
}

// WithTimeout sets the timeout applied per request.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.timeout = timeout
	}
}

// WithTransport sets the http.Transport to allow overwriting the HTTPGetter
// default.
func WithTransport(transport *http.Transport) Option {
	return func(opts *options) {
		opts.transport = transport
	}
}

// Getter is an interface to support fetches from a remote URL.
type Getter interface {
	// Get fetches a small document in full and returns the body.
	Get(ctx context.Context, href string) (*bytes.Buffer, error)
	// Stream opens the body of href for sequential reading. The caller
	// must close the returned reader.
	Stream(ctx context.Context, href string) (io.ReadCloser, error)
	// StreamRange opens the inclusive byte range [start, end] of href.
	// The caller must close the returned reader.
	StreamRange(ctx context.Context, href string, start, end int64) (io.ReadCloser, error)
	// ContentLength probes the size of href without fetching the body.
	// A zero size means the server did not report one.
	ContentLength(ctx context.Context, href string) (int64, error)
}

// DefaultHTTPTimeout bounds a single request, not a whole download.
const DefaultHTTPTimeout = 30 * time.Second
