package util

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// fingerprintTransport dials TLS with a Chrome 120 ClientHello. Chrome
// advertises h2, so requests go through an HTTP/2 transport first and fall
// back to an HTTP/1.1 transport when the server does not speak h2.
type fingerprintTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

func newFingerprintTransport(cfg httpClientConfig) *fingerprintTransport {
	dialer := &net.Dialer{Timeout: cfg.dialTimeout, KeepAlive: cfg.keepAlive}

	h1 := createTransport(cfg)
	h1.ForceAttemptHTTP2 = false
	h1.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialChrome(ctx, dialer, network, addr, []string{"http/1.1"})
	}

	return &fingerprintTransport{
		h2: &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dialChrome(ctx, dialer, network, addr, nil)
			},
			ReadIdleTimeout: cfg.idleConnTimeout,
		},
		h1: h1,
	}
}

func (t *fingerprintTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}
	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	if req.Body != nil && req.GetBody == nil {
		return nil, err
	}
	Debug("h2 fingerprint request failed, retrying over http/1.1", "host", req.URL.Host, "error", err)
	return t.h1.RoundTrip(req.Clone(req.Context()))
}

func dialChrome(ctx context.Context, dialer *net.Dialer, network, addr string, protos []string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	tlsConn := utls.UClient(conn, &utls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
		NextProtos: protos,
	}, utls.HelloChrome_120)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	return tlsConn, nil
}
