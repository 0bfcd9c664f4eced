package metagraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsmint/logger"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var (
	// ErrTransport covers network failures and non-2xx responses
	ErrTransport = errors.New("metagraph transport failure")
	// ErrProtocol means the metagraph answered 2xx without a token identifier
	ErrProtocol = errors.New("metagraph response has no token id")
)

// MintData is the fixed projection of an article sent to the metagraph
type MintData struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Authors       string `json:"authors"`
	PublishedDate string `json:"published_date"`
	URL           string `json:"url"`
	Source        string `json:"source"`
}

// MintRequest is the body POSTed to /l1/data
type MintRequest struct {
	Address string   `json:"address"`
	Data    MintData `json:"data"`
}

// mintResponse carries the fields the token id may be reported under
type mintResponse struct {
	Hash string `json:"hash"`
	ID   string `json:"id"`
}

// NodeInfo is the metagraph node description returned by /node/info
type NodeInfo map[string]any

// Client talks to a metagraph L1 node over HTTP
type Client struct {
	baseURL string
	http    *resty.Client
	log     *zap.Logger
}

// NewClient creates a metagraph client for baseURL (e.g. http://localhost:9400)
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL: baseURL,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		log: logger.OrNop(log),
	}
}

// BaseURL returns the configured metagraph endpoint
func (c *Client) BaseURL() string { return c.baseURL }

// Mint registers data as an NFT owned by address and returns the token id
func (c *Client) Mint(ctx context.Context, address string, data MintData) (string, error) {
	payload := MintRequest{Address: address, Data: data}
	c.log.Info("sending minting request to metagraph",
		zap.String("address", address),
		zap.String("url", data.URL))

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/l1/data")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", fmt.Errorf("%w: metagraph returned %d: %s", ErrTransport, resp.StatusCode(), snippet(resp.Body()))
	}

	var result mintResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		c.log.Error("metagraph response is not json", zap.ByteString("body", resp.Body()))
		return "", fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	tokenID := strings.TrimSpace(result.Hash)
	if tokenID == "" {
		tokenID = strings.TrimSpace(result.ID)
	}
	if tokenID == "" {
		c.log.Error("metagraph response carried no token id", zap.ByteString("body", resp.Body()))
		return "", ErrProtocol
	}

	c.log.Info("metagraph minting response", zap.String("token_id", tokenID))
	return tokenID, nil
}

// NodeInfo fetches the node description from /node/info
func (c *Client) NodeInfo(ctx context.Context) (NodeInfo, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/node/info")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("%w: metagraph returned %d: %s", ErrTransport, resp.StatusCode(), snippet(resp.Body()))
	}

	info := NodeInfo{}
	if err := json.Unmarshal(resp.Body(), &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return info, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}
