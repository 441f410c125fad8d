package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	oceanpost "github.com/driftlabs/oceanpost"
)

const (
	// DefaultAPIURL is the default IPFS node API endpoint.
	DefaultAPIURL = "http://127.0.0.1:5001"

	// DefaultTimeout is the default timeout for store requests.
	DefaultTimeout = 30 * time.Second
)

// Gateway talks to an IPFS-style HTTP API: blobs are added via the add
// endpoint and retrieved via cat. Snapshot blobs are wrapped in the
// envelope frame so large payloads travel compressed.
type Gateway struct {
	baseURL string
	token   string
	client  *http.Client
	codec   *EnvelopeCodec
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithAPIURL sets the node API URL.
func WithAPIURL(u string) GatewayOption {
	return func(g *Gateway) {
		g.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *Gateway) {
		g.client = client
	}
}

// WithBearerToken sets the bearer token for pinning-service authentication.
func WithBearerToken(token string) GatewayOption {
	return func(g *Gateway) {
		g.token = token
	}
}

// NewGateway creates a content-store client for an IPFS-style API.
func NewGateway(opts ...GatewayOption) (*Gateway, error) {
	codec, err := NewEnvelopeCodec()
	if err != nil {
		return nil, fmt.Errorf("creating envelope codec: %w", err)
	}

	g := &Gateway{
		baseURL: DefaultAPIURL,
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		codec: codec,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Close releases codec resources.
func (g *Gateway) Close() {
	g.codec.Close()
}

func (g *Gateway) setAuth(req *http.Request) {
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
}

// addResponse is the add endpoint's result document.
type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Upload implements Store. The blob is framed, posted to the add endpoint,
// and the hash reported by the node is returned.
func (g *Gateway) Upload(ctx context.Context, data []byte) (oceanpost.ContentHash, error) {
	framed, err := g.codec.Encode(data)
	if err != nil {
		return "", fmt.Errorf("%w: framing blob: %v", ErrUploadFailed, err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "snapshot.json")
	if err != nil {
		return "", fmt.Errorf("%w: building form: %v", ErrUploadFailed, err)
	}
	if _, err := part.Write(framed); err != nil {
		return "", fmt.Errorf("%w: building form: %v", ErrUploadFailed, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: building form: %v", ErrUploadFailed, err)
	}

	u := fmt.Sprintf("%s/api/v0/add?pin=true", g.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	g.setAuth(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: performing request: %v", ErrUploadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: store returned %d: %s", ErrUploadFailed, resp.StatusCode, string(msg))
	}

	var result addResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decoding add response: %v", ErrUploadFailed, err)
	}
	if result.Hash == "" {
		return "", fmt.Errorf("%w: store returned no hash", ErrUploadFailed)
	}

	return oceanpost.ContentHash(result.Hash), nil
}

// Fetch implements Store. The hash is validated before any request is made.
func (g *Gateway) Fetch(ctx context.Context, hash oceanpost.ContentHash) ([]byte, error) {
	if !hash.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHash, hash)
	}

	u := fmt.Sprintf("%s/api/v0/cat?arg=%s", g.baseURL, url.QueryEscape(hash.String()))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request for %s: %v", ErrFetchFailed, hash.ShortString(), err)
	}
	g.setAuth(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", ErrFetchFailed, hash.ShortString(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: store returned %d for %s: %s", ErrFetchFailed, resp.StatusCode, hash.ShortString(), string(msg))
	}

	framed, err := io.ReadAll(io.LimitReader(resp.Body, MaxBlobSize+64))
	if err != nil {
		return nil, fmt.Errorf("%w: reading blob %s: %v", ErrFetchFailed, hash.ShortString(), err)
	}

	data, err := g.codec.Decode(framed)
	if err != nil {
		return nil, fmt.Errorf("%w: unframing blob %s: %v", ErrFetchFailed, hash.ShortString(), err)
	}
	return data, nil
}

var _ Store = (*Gateway)(nil)
