package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"mizu/internal/domain"
)

// Client is a domain.PostalBoxClient over HTTP.
type Client struct {
	Base   string
	client *http.Client
}

// NewClient constructs a postal-box client rooted at base. If c is
// nil, http.DefaultClient is used.
func NewClient(base string, c *http.Client) *Client {
	if c == nil {
		c = http.DefaultClient
	}
	return &Client{Base: base, client: c}
}

var _ domain.PostalBoxClient = (*Client)(nil)

// Register publishes bundle under address via POST /box/{address}.
func (c *Client) Register(ctx context.Context, address string, bundle domain.PrekeyBundle) error {
	return c.post(ctx, "/box/"+url.PathEscape(address), toBundleWire(bundle), nil)
}

// FetchBundle retrieves the bundle published for address via
// GET /box/{address}.
func (c *Client) FetchBundle(ctx context.Context, address string) (domain.PrekeyBundle, error) {
	var w bundleWire
	if err := c.getJSON(ctx, "/box/"+url.PathEscape(address), &w); err != nil {
		return domain.PrekeyBundle{}, err
	}
	return w.toDomain()
}

// Post appends content to address's box via POST /box/{address}/post.
func (c *Client) Post(ctx context.Context, address string, content []byte) error {
	return c.post(ctx, "/box/"+url.PathEscape(address)+"/post", postWire{Content: content}, nil)
}

// Fetch retrieves entries with index > sinceIndex, capped at limit, via
// GET /box/{address}/entries.
func (c *Client) Fetch(ctx context.Context, address string, sinceIndex uint64, limit int) ([]domain.PostalBoxEntry, error) {
	u := "/box/" + url.PathEscape(address) + "/entries?since=" + strconv.FormatUint(sinceIndex, 10)
	if limit > 0 {
		u += "&limit=" + strconv.Itoa(limit)
	}
	var wired []entryWire
	if err := c.getJSON(ctx, u, &wired); err != nil {
		return nil, err
	}
	out := make([]domain.PostalBoxEntry, len(wired))
	for i, w := range wired {
		out[i] = w.toDomain()
	}
	return out, nil
}

// Poke leaves a sealed discovery hint in address's poke queue via
// POST /box/{address}/poke.
func (c *Client) Poke(ctx context.Context, address string, sealed []byte) error {
	return c.post(ctx, "/box/"+url.PathEscape(address)+"/poke", pokeBodyWire{Sealed: sealed}, nil)
}

// FetchPokes drains address's poke queue via GET /box/{address}/pokes.
func (c *Client) FetchPokes(ctx context.Context, address string) ([]domain.DiscoveryRequest, error) {
	var wired []pokeWire
	if err := c.getJSON(ctx, "/box/"+url.PathEscape(address)+"/pokes", &wired); err != nil {
		return nil, err
	}
	out := make([]domain.DiscoveryRequest, len(wired))
	for i, w := range wired {
		out[i] = w.toDomain()
	}
	return out, nil
}

// post JSON-encodes in and POSTs it to path, decoding the response
// into out when non-nil.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return fmt.Errorf("rpc: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return fmt.Errorf("rpc: %w: %v", domain.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("rpc: %w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("rpc: %w: post %s: %s", domain.ErrTransport, path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// getJSON performs a GET against path and JSON-decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return fmt.Errorf("rpc: %w: %v", domain.ErrTransport, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("rpc: %w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("rpc: %w: not found: %s", domain.ErrStore, path)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("rpc: %w: get %s: %s", domain.ErrTransport, path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
