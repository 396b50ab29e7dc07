package util

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/publicsuffix"
)

var (
	sharedClient     *http.Client
	sharedClientOnce sync.Once
)

// ClientOptions configures clients built by NewHTTPClient.
type ClientOptions struct {
	// Timeout bounds a whole request including the body read.
	Timeout time.Duration
	// Fingerprint dials TLS with a Chrome ClientHello instead of Go's.
	Fingerprint bool
	// Cookies keeps a per-client cookie jar, which the scraped sites use
	// to hand out session tokens.
	Cookies bool
}

// httpClientConfig holds configuration for creating optimized HTTP clients
type httpClientConfig struct {
	timeout             time.Duration
	maxIdleConns        int
	maxIdleConnsPerHost int
	maxConnsPerHost     int
	idleConnTimeout     time.Duration
	tlsHandshakeTimeout time.Duration
	expectContinue      time.Duration
	keepAlive           time.Duration
	dialTimeout         time.Duration
	disableCompression  bool
	// control vets every connection after name resolution.
	control func(network, address string, c syscall.RawConn) error
}

// defaultConfig returns the configuration used for scraping and API calls.
func defaultConfig() httpClientConfig {
	return httpClientConfig{
		timeout:             15 * time.Second,
		maxIdleConns:        200,
		maxIdleConnsPerHost: 20,
		maxConnsPerHost:     50,
		idleConnTimeout:     120 * time.Second,
		tlsHandshakeTimeout: 5 * time.Second,
		expectContinue:      1 * time.Second,
		keepAlive:           30 * time.Second,
		dialTimeout:         5 * time.Second,
	}
}

// streamConfig returns the configuration used by the media proxy. Bodies are
// relayed byte for byte, so transparent gzip is off and there is no overall
// timeout, only a bound on waiting for response headers.
func streamConfig() httpClientConfig {
	cfg := defaultConfig()
	cfg.timeout = 0
	cfg.maxIdleConnsPerHost = 32
	cfg.maxConnsPerHost = 0
	cfg.disableCompression = true
	return cfg
}

// createTransport creates an optimized HTTP transport with the given config
func createTransport(cfg httpClientConfig) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.dialTimeout,
			KeepAlive: cfg.keepAlive,
			Control:   cfg.control,
		}).DialContext,
		MaxIdleConns:          cfg.maxIdleConns,
		MaxIdleConnsPerHost:   cfg.maxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.maxConnsPerHost,
		IdleConnTimeout:       cfg.idleConnTimeout,
		TLSHandshakeTimeout:   cfg.tlsHandshakeTimeout,
		ExpectContinueTimeout: cfg.expectContinue,
		ResponseHeaderTimeout: 20 * time.Second,
		DisableCompression:    cfg.disableCompression,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// NewHTTPClient builds a client for upstream scraping and API calls. The
// transport negotiates gzip, deflate, br and zstd and hands callers the
// decoded body.
func NewHTTPClient(opts ClientOptions) *http.Client {
	cfg := defaultConfig()
	if opts.Timeout > 0 {
		cfg.timeout = opts.Timeout
	}

	var base http.RoundTripper = createTransport(cfg)
	if opts.Fingerprint {
		base = newFingerprintTransport(cfg)
	}

	client := &http.Client{
		Transport: &decodingTransport{base: base},
		Timeout:   cfg.timeout,
	}

	if opts.Cookies {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err == nil {
			client.Jar = jar
		} else {
			Warn("cookie jar unavailable", "error", err)
		}
	}

	return client
}

// NewStreamClient builds the client used to relay media through the proxy.
func NewStreamClient() *http.Client {
	cfg := streamConfig()
	return &http.Client{
		Transport: createTransport(cfg),
		Timeout:   cfg.timeout,
	}
}

// NewSafeStreamClient is NewStreamClient refusing loopback, private,
// link-local and multicast addresses, for relaying caller supplied urls.
func NewSafeStreamClient() *http.Client {
	cfg := streamConfig()
	cfg.control = publicOnly
	return &http.Client{
		Transport: createTransport(cfg),
		Timeout:   cfg.timeout,
	}
}

// GetSharedClient returns a process wide client with default options.
func GetSharedClient() *http.Client {
	sharedClientOnce.Do(func() {
		sharedClient = NewHTTPClient(ClientOptions{})
	})
	return sharedClient
}

// ParallelExecute executes multiple functions in parallel with a worker limit
// Returns when all functions complete. Safe for concurrent use.
func ParallelExecute(maxWorkers int, tasks ...func()) {
	if len(tasks) == 0 {
		return
	}

	workers := maxWorkers
	if workers <= 0 || len(tasks) < workers {
		workers = len(tasks)
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)

	for _, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			task()
		}()
	}

	wg.Wait()
}
