// Package playground uploads try blocks as single-file projects to a
// playground build service.
package playground

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ezerfernandes/trypub/internal/config"
	"github.com/ezerfernandes/trypub/internal/trycode"
)

const (
	projectsPath = "/v1/playground/projects/"
	acceptType   = "application/vnd.adobe-ffcaddon.response+json"
	archiveName  = "project.zip"

	// HeaderRequestID is the correlation header support needs to trace a
	// failed upload.
	HeaderRequestID = "x-request-id"

	maxErrorBody = 4 << 10
)

// ErrUpload is returned when the project upload is rejected.
var ErrUpload = errors.New("project upload failed")

// Publisher replaces the playground project named by each block id with an
// archive of the block's code.
type Publisher struct {
	cfg    config.PlaygroundConfig
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

// WithLogger sets the logger used to report failed uploads.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New returns a Publisher for cfg. Settings are validated on first use.
func New(cfg config.PlaygroundConfig, opts ...Option) *Publisher {
	p := &Publisher{cfg: cfg, client: &http.Client{}, logger: zap.NewNop()}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Publish fetches a fresh access token and uploads the block.
func (p *Publisher) Publish(ctx context.Context, block *trycode.Block) error {
	if err := p.cfg.Validate(); err != nil {
		return err
	}

	tokens := NewTokenClient(p.cfg.IMSBaseURL, p.cfg.ClientID, p.cfg.ClientSecret, p.cfg.AuthCode, p.client)

	token, err := tokens.Token(ctx)
	if err != nil {
		return err
	}

	zipped, err := archive(block.Code)
	if err != nil {
		return fmt.Errorf("archive %s: %w", block.ID, err)
	}

	body, contentType, err := form(block.ID, zipped)
	if err != nil {
		return err
	}

	endpoint := strings.TrimRight(p.cfg.FFCBaseURL, "/") + projectsPath + url.PathEscape(block.ID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, body)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", acceptType)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-api-key", p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUpload, block.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		requestID := resp.Header.Get(HeaderRequestID)
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		p.logger.Error("upload rejected",
			zap.String("id", block.ID),
			zap.Int("status", resp.StatusCode),
			zap.String("requestId", requestID),
		)

		return fmt.Errorf("%w: %s: %s (request id %q): %s",
			ErrUpload, block.ID, resp.Status, requestID, bytes.TrimSpace(msg))
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

func form(name string, zipped []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, archiveName))
	header.Set("Content-Type", "application/zip")

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", err
	}

	if _, err := part.Write(zipped); err != nil {
		return nil, "", err
	}

	if err := mw.WriteField("name", name); err != nil {
		return nil, "", err
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return &buf, mw.FormDataContentType(), nil
}
