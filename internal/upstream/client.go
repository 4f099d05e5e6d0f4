// Package upstream opens producer event streams over HTTP SSE.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tiller/core"
	"pkt.systems/tiller/internal/appconfig"
	"pkt.systems/tiller/internal/framestream"
	"pkt.systems/tiller/schema"
)

// openPayload is the run request sent to the producer endpoint.
type openPayload struct {
	SessionID schema.SessionID `json:"session_id"`
	RunID     schema.RunID     `json:"run_id"`
	Prompt    string           `json:"prompt"`
	TargetURL string           `json:"target_url,omitempty"`
}

// Client opens producer streams. It implements core.StreamProvider.
type Client struct {
	endpoint string
	token    string
	client   *http.Client
	log      pslog.Logger
}

// NewClient constructs a stream client from config.
func NewClient(cfg appconfig.UpstreamConfig, logger pslog.Logger) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.URL)
	if endpoint == "" {
		return nil, errors.New("upstream url is required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid upstream url %q", endpoint)
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	timeout := time.Duration(cfg.ConnectTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	// No overall client timeout: the stream stays open for the whole run.
	// The header timeout bounds connection establishment only.
	transport := &http.Transport{ResponseHeaderTimeout: timeout}
	return &Client{
		endpoint: endpoint,
		token:    strings.TrimSpace(cfg.Token),
		client:   &http.Client{Transport: transport},
		log:      logger.With("upstream", parsed.Host),
	}, nil
}

// Open starts a run on the producer and returns its event stream.
func (c *Client) Open(ctx context.Context, req core.OpenStreamRequest) (core.EventStream, error) {
	payload, err := json.Marshal(openPayload{
		SessionID: req.SessionID,
		RunID:     req.RunID,
		Prompt:    req.Prompt,
		TargetURL: req.TargetURL,
	})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.log.Warn("upstream open failed", "run", req.RunID, "err", err)
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		c.log.Warn("upstream open rejected", "run", req.RunID, "status", resp.StatusCode)
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	c.log.Debug("upstream stream opened", "run", req.RunID)
	return &stream{
		body:    resp.Body,
		decoder: framestream.NewDecoderWithLogger(resp.Body, c.log),
	}, nil
}

// stream adapts a response body to the core.EventStream contract.
type stream struct {
	body    io.ReadCloser
	decoder *framestream.Decoder
}

func (s *stream) Next(ctx context.Context) (schema.StreamEvent, error) {
	return s.decoder.Next(ctx)
}

func (s *stream) Close() error {
	return s.body.Close()
}
