package util

import (
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// acceptEncoding is what a current desktop browser advertises. Some of the
// scraped sites serve a challenge page to clients that only ask for gzip.
const acceptEncoding = "gzip, deflate, br, zstd"

// decodingTransport advertises browser encodings and decodes the response
// so callers always read plain bytes.
type decodingTransport struct {
	base http.RoundTripper
}

func (t *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" && req.Header.Get("Range") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	body, err := decodeBody(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	if body != resp.Body {
		resp.Body = body
		resp.Header.Del("Content-Encoding")
		resp.Header.Del("Content-Length")
		resp.ContentLength = -1
		resp.Uncompressed = true
	}
	return resp, nil
}

// decodeBody wraps body in a decoder for the given Content-Encoding.
// Unknown or identity encodings return body unchanged.
func decodeBody(encoding string, body io.ReadCloser) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "br":
		return &wrappedBody{Reader: brotli.NewReader(body), closers: []io.Closer{body}}, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, err
		}
		return &wrappedBody{Reader: zr, closers: []io.Closer{zr, body}}, nil
	case "deflate":
		zr, err := zlib.NewReader(body)
		if err != nil {
			return nil, err
		}
		return &wrappedBody{Reader: zr, closers: []io.Closer{zr, body}}, nil
	case "zstd":
		dec, err := zstd.NewReader(body)
		if err != nil {
			return nil, err
		}
		rc := dec.IOReadCloser()
		return &wrappedBody{Reader: rc, closers: []io.Closer{rc, body}}, nil
	}
	return body, nil
}

type wrappedBody struct {
	io.Reader
	closers []io.Closer
}

func (w *wrappedBody) Close() error {
	var first error
	for _, c := range w.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
