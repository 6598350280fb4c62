// Package jsonbin publishes try blocks as JSON records to a key-value store
// addressed by bin name.
package jsonbin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ezerfernandes/trypub/internal/config"
	"github.com/ezerfernandes/trypub/internal/trycode"
)

const (
	headerMasterKey = "X-Master-Key"
	headerBinName   = "X-Bin-Name"

	maxErrorBody = 4 << 10
)

// ErrStatus is returned when the store answers with a status outside 2xx/3xx.
var ErrStatus = errors.New("unexpected response status")

type envelope struct {
	Record *trycode.Block `json:"record"`
}

// Publisher stores each block under a bin named after its id.
type Publisher struct {
	cfg    config.StoreConfig
	client *http.Client
	logger *zap.Logger
}

// Option configures a [Publisher].
type Option func(*Publisher)

// WithHTTPClient replaces the default client, which has no timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Publisher) {
		p.client = client
	}
}

// WithLogger sets the logger used for dry-run notices.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New returns a Publisher for cfg. Settings are validated on the first real
// upload, not here, so a dry run needs no secrets.
func New(cfg config.StoreConfig, opts ...Option) *Publisher {
	p := &Publisher{cfg: cfg, client: &http.Client{}, logger: zap.NewNop()}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Publish posts the block, or only logs it in dry-run mode.
func (p *Publisher) Publish(ctx context.Context, block *trycode.Block) error {
	if p.cfg.DryRun {
		p.logger.Info("dry run, upload skipped",
			zap.String("id", block.ID),
			zap.String("file", block.FilePath),
		)

		return nil
	}

	if err := p.cfg.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(envelope{Record: block})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerMasterKey, p.cfg.MasterKey)
	req.Header.Set(headerBinName, block.ID)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", block.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return fmt.Errorf("%w: upload %s: %s: %s", ErrStatus, block.ID, resp.Status, bytes.TrimSpace(msg))
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}
