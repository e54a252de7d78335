// Package cloudprint talks to the cloud print provider and maps its job
// states to a small fixed vocabulary.
package cloudprint

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/photo-booth/internal/booth"
)

const (
	defaultTimeout = 30 * time.Second
	contentTypePNG = "png_base64"
	jobSource      = "photo-booth"
)

// ErrEmptyResponse is returned when the provider answers with an empty list.
var ErrEmptyResponse = errors.New("empty response from print provider")

// Client is a thin HTTP client for the provider API. The API key is passed
// per call and never stored.
type Client struct {
	baseURL    string
	http       *http.Client
	normalizer *Normalizer
	log        zerolog.Logger
}

// New creates a client for the API at baseURL.
func New(baseURL string, normalizer *Normalizer, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		http:       &http.Client{Timeout: defaultTimeout},
		normalizer: normalizer,
		log:        log.With().Str("component", "cloudprint").Logger(),
	}
}

// WithHTTPClient replaces the HTTP client, mostly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

func (c *Client) resolveURL(endpoint string) string {
	return c.baseURL + "/" + strings.TrimPrefix(endpoint, "/")
}

// Printer fetches one printer. The provider wraps single objects in a list.
func (c *Client) Printer(ctx context.Context, apiKey string, printerID int) (*Printer, error) {
	printers, err := doGetJSON[[]Printer](ctx, c, apiKey, "printers/"+strconv.Itoa(printerID))
	if err != nil {
		return nil, fmt.Errorf("get printer %d: %w", printerID, err)
	}
	if len(*printers) == 0 {
		return nil, fmt.Errorf("get printer %d: %w", printerID, ErrEmptyResponse)
	}
	return &(*printers)[0], nil
}

// Job fetches one print job.
func (c *Client) Job(ctx context.Context, apiKey, jobID string) (*Job, error) {
	jobs, err := doGetJSON[[]Job](ctx, c, apiKey, "printjobs/"+url.PathEscape(jobID))
	if err != nil {
		return nil, fmt.Errorf("get print job %s: %w", jobID, err)
	}
	if len(*jobs) == 0 {
		// An empty list behaves like a job that is not visible yet.
		return nil, fmt.Errorf("get print job %s: %w", jobID, &HTTPError{StatusCode: http.StatusNotFound})
	}
	return &(*jobs)[0], nil
}

// Status fetches the job and its printer and normalizes them. Lookup
// failures end up in the result, never in a returned error.
func (c *Client) Status(ctx context.Context, apiKey string, printerID int, jobID string) Result {
	obs := Observation{JobID: jobID}
	if printerID > 0 {
		obs.Printer, obs.PrinterErr = c.Printer(ctx, apiKey, printerID)
	}
	if jobID != "" {
		obs.Job, obs.JobErr = c.Job(ctx, apiKey, jobID)
	}
	return c.normalizer.Normalize(obs)
}

// Submit creates a print job with a PNG sheet and returns the job id.
func (c *Client) Submit(ctx context.Context, apiKey string, printerID int, title string, png []byte) (string, error) {
	req := submitRequest{
		PrinterID:   printerID,
		Title:       title,
		ContentType: contentTypePNG,
		Content:     base64.StdEncoding.EncodeToString(png),
		Source:      jobSource,
	}
	id, err := doPostJSONCreated[ID](ctx, c, apiKey, "printjobs", req)
	if err != nil {
		return "", fmt.Errorf("submit print job: %w", err)
	}
	c.log.Info().Int("printer_id", printerID).Str("job_id", string(*id)).Msg("Submitted print job")
	return string(*id), nil
}

// CloudPrinter adapts the client to booth.Printer for one printer and key.
type CloudPrinter struct {
	client    *Client
	apiKey    string
	printerID int

	// OnSubmitted receives the job id of every submitted sheet.
	OnSubmitted func(jobID string)
}

// NewPrinter creates a booth.Printer that submits sheets to printerID.
func NewPrinter(client *Client, apiKey string, printerID int) *CloudPrinter {
	return &CloudPrinter{client: client, apiKey: apiKey, printerID: printerID}
}

// Print implements booth.Printer.
func (p *CloudPrinter) Print(ctx context.Context, job booth.PrintJob) error {
	id, err := p.client.Submit(ctx, p.apiKey, p.printerID, job.Title, job.Data)
	if err != nil {
		return err
	}
	if p.OnSubmitted != nil {
		p.OnSubmitted(id)
	}
	return nil
}
