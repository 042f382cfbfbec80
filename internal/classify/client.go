// Package classify talks to the remote classification service.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/mailsort/internal/email"
	"github.com/hpungsan/mailsort/internal/errors"
)

// DefaultTimeout bounds a single classification request.
const DefaultTimeout = 25 * time.Second

// configTimeout bounds the GET /config lookup.
const configTimeout = 5 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

const (
	transportMessage = "failed to communicate with the classification service"
	invalidMessage   = "invalid response from the classification service"
	rejectedFallback = "error processing the email"
)

// Client issues requests against the classification service.
// It holds no session state and is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient constructs a client for the service at baseURL.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{},
		log:     log,
	}
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// classifyResponse mirrors the POST /classify payload.
type classifyResponse struct {
	OK          bool              `json:"ok"`
	Error       string            `json:"error"`
	Category    string            `json:"category"`
	Probability float64           `json:"probability"`
	ReplyPT     string            `json:"reply_pt"`
	ReplyEN     string            `json:"reply_en"`
	DefaultLang string            `json:"reply_lang_default"`
	Explanation email.Explanation `json:"explanation"`
	TextPreview string            `json:"text_preview"`
}

// Classify sends req and waits at most timeout for the answer.
// A non-positive timeout means DefaultTimeout.
//
// Errors are *errors.AppError with code TIMEOUT, CANCELED, TRANSPORT or REJECTED.
func (c *Client) Classify(ctx context.Context, req email.Request, timeout time.Duration) (*email.Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	body, contentType, err := encodeRequest(req)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/classify", body)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, c.requestError(ctx, reqCtx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.requestError(ctx, reqCtx, err)
	}

	c.log.Debug().
		Int("status", resp.StatusCode).
		Str("kind", req.Kind.String()).
		Dur("elapsed", time.Since(start)).
		Msg("classify response")

	var payload classifyResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.NewTransport(invalidMessage, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !payload.OK {
		msg := strings.TrimSpace(payload.Error)
		if msg == "" {
			msg = rejectedFallback
		}
		return nil, errors.NewRejected(msg, resp.StatusCode)
	}

	return toResult(payload), nil
}

// requestError maps a failed round trip onto a coded error.
func (c *Client) requestError(parent, reqCtx context.Context, err error) error {
	switch {
	case parent.Err() != nil && stderrors.Is(parent.Err(), context.Canceled):
		return errors.NewCanceled()
	case reqCtx.Err() != nil && stderrors.Is(reqCtx.Err(), context.DeadlineExceeded):
		return errors.NewTimeout()
	default:
		c.log.Warn().Err(err).Msg("classification service unreachable")
		return errors.NewTransport(transportMessage, err)
	}
}

func encodeRequest(req email.Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	switch req.Kind {
	case email.KindFile:
		part, err := w.CreateFormFile("email_file", req.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(req.Payload); err != nil {
			return nil, "", fmt.Errorf("write file part: %w", err)
		}
	default:
		if err := w.WriteField("email_text", req.Text); err != nil {
			return nil, "", fmt.Errorf("write text field: %w", err)
		}
	}

	lang := req.PreferredLang
	if lang == "" {
		lang = email.LangAuto
	}
	if err := w.WriteField("preferred_lang", lang); err != nil {
		return nil, "", fmt.Errorf("write preferred_lang: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func toResult(p classifyResponse) *email.Result {
	prob := p.Probability
	if prob < 0 {
		prob = 0
	} else if prob > 1 {
		prob = 1
	}

	def := strings.ToLower(strings.TrimSpace(p.DefaultLang))
	if !email.IsLang(def) {
		def = email.LangPT
	}

	expl := p.Explanation
	expl.Intent = strings.ToUpper(strings.TrimSpace(expl.Intent))
	if len(expl.TopFeatures) > 0 {
		expl.TopFeatures = append([]string(nil), expl.TopFeatures...)
	}

	return &email.Result{
		Category:    email.ParseCategory(p.Category),
		Probability: prob,
		ReplyPT:     p.ReplyPT,
		ReplyEN:     p.ReplyEN,
		DefaultLang: def,
		Explanation: expl,
		TextPreview: p.TextPreview,
	}
}

// SiteConfig is the branding published by GET /config.
type SiteConfig struct {
	CompanyName string
	LogoURL     string
}

// FetchConfig reads the service's branding. Callers treat any error as
// "no remote branding".
func (c *Client) FetchConfig(ctx context.Context) (SiteConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, configTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/config", nil)
	if err != nil {
		return SiteConfig{}, err
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return SiteConfig{}, fmt.Errorf("get config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return SiteConfig{}, fmt.Errorf("get config: status %d", resp.StatusCode)
	}

	var payload struct {
		OK          bool   `json:"ok"`
		CompanyName string `json:"company_name"`
		LogoURL     string `json:"logo_url"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return SiteConfig{}, fmt.Errorf("decode config: %w", err)
	}
	if !payload.OK {
		return SiteConfig{}, fmt.Errorf("config not available")
	}

	return SiteConfig{
		CompanyName: strings.TrimSpace(payload.CompanyName),
		LogoURL:     strings.TrimSpace(payload.LogoURL),
	}, nil
}
