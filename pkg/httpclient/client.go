// Package httpclient provides the outbound HTTP client used by the
// thumbnail relay. Some image CDNs reject clients without a browser TLS
// fingerprint, so a utls-based transport is kept alongside the default
// pooled one and used as a fallback.
package httpclient

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
	"golang.org/x/net/proxy"

	"video-gateway-go/pkg/config"
	"video-gateway-go/pkg/logging"
)

const requestTimeout = 30 * time.Second

// Client wraps http.Client with a browser-fingerprint fallback transport.
type Client struct {
	defaultClient *http.Client
	utlsClient    *http.Client
	log           *logging.Logger
}

// New creates a client honoring the configured egress proxy.
func New(cfg *config.Config, log *logging.Logger) *Client {
	c := &Client{
		log: log.WithComponent("httpclient"),
	}

	transport := &http.Transport{
		DialContext:           dialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
	applyEgressProxy(transport, cfg.EgressProxy, c.log)

	c.defaultClient = &http.Client{
		Transport: transport,
		Timeout:   requestTimeout,
	}
	c.utlsClient = &http.Client{
		Transport: newUTLSRoundTripper(),
		Timeout:   requestTimeout,
	}

	return c
}

// Get fetches a URL, retrying once with a browser-like TLS fingerprint
// when the origin rejects the default client.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	resp, err := c.do(ctx, c.defaultClient, rawURL)
	if err == nil && !rejected(resp.StatusCode) {
		return resp, nil
	}
	if err == nil {
		resp.Body.Close()
		c.log.Debug("origin rejected default client, retrying with browser fingerprint",
			"url", rawURL, "status", resp.StatusCode)
	}
	return c.do(ctx, c.utlsClient, rawURL)
}

func (c *Client) do(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	return client.Do(req)
}

// rejected reports status codes that typically mean fingerprint-based
// blocking rather than a missing resource.
func rejected(status int) bool {
	return status == http.StatusForbidden || status == http.StatusTooManyRequests
}

// applyEgressProxy routes the transport through a SOCKS5 or HTTP proxy.
func applyEgressProxy(transport *http.Transport, proxyURL string, log *logging.Logger) {
	if proxyURL == "" {
		return
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		log.Error("failed to parse egress proxy URL", "url", proxyURL, "error", err)
		return
	}

	switch parsed.Scheme {
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(parsed, proxy.Direct)
		if err != nil {
			log.Error("failed to create SOCKS5 dialer", "error", err)
			return
		}
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = contextDialer.DialContext
		} else {
			transport.Dial = dialer.Dial
		}
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsed)
	default:
		log.Warn("unsupported egress proxy scheme", "scheme", parsed.Scheme)
	}
}

func dialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	d := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 60 * time.Second,
	}
	return d.DialContext(ctx, network, addr)
}

// utlsRoundTripper implements http.RoundTripper with a Chrome TLS
// fingerprint, negotiating HTTP/2 when the origin offers it.
type utlsRoundTripper struct {
	dialer      *net.Dialer
	h2Transport *http2.Transport
}

func newUTLSRoundTripper() *utlsRoundTripper {
	return &utlsRoundTripper{
		dialer: &net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 60 * time.Second,
		},
		h2Transport: &http2.Transport{},
	}
}

func (t *utlsRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// Only HTTPS needs a fingerprint
	if req.URL.Scheme != "https" {
		return http.DefaultTransport.RoundTrip(req)
	}

	addr := req.URL.Host
	if !strings.Contains(addr, ":") {
		addr += ":443"
	}

	conn, err := t.dialer.DialContext(req.Context(), "tcp", addr)
	if err != nil {
		return nil, err
	}

	tlsConfig := &utls.Config{
		ServerName: req.URL.Hostname(),
	}
	utlsConn := utls.UClient(conn, tlsConfig, utls.HelloChrome_120)

	if err := utlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, err
	}

	if utlsConn.ConnectionState().NegotiatedProtocol == "h2" {
		h2Conn, err := t.h2Transport.NewClientConn(utlsConn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return h2Conn.RoundTrip(req)
	}

	return t.doHTTP1Request(utlsConn, req)
}

func (t *utlsRoundTripper) doHTTP1Request(conn net.Conn, req *http.Request) (*http.Response, error) {
	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, err
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		conn.Close()
		return nil, err
	}

	resp.Body = &connCloser{resp.Body, conn}
	return resp, nil
}

// connCloser ties the connection's lifetime to the response body.
type connCloser struct {
	io.ReadCloser
	conn net.Conn
}

func (c *connCloser) Close() error {
	c.ReadCloser.Close()
	return c.conn.Close()
}
