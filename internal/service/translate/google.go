package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"voice-order-service/internal/service/language"
	"voice-order-service/internal/service/order"
)

const (
	DefaultEndpoint = "https://translate.googleapis.com/translate_a/single"
	DefaultTimeout  = 10 * time.Second

	maxErrorBody = 512
)

// Config for GoogleClient.
type Config struct {
	Endpoint string
	Timeout  time.Duration
	APIKeys  []string
}

// GoogleClient calls the public translate_a/single endpoint with client=gtx.
type GoogleClient struct {
	endpoint   string
	httpClient *http.Client
	keys       *KeyRing
}

func NewGoogleClient(cfg Config) *GoogleClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &GoogleClient{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		keys:       NewKeyRing(cfg.APIKeys...),
	}
}

// Translate strips order formatting from text and translates the rest.
// Identical source and target languages return the stripped text without a
// request.
func (c *GoogleClient) Translate(ctx context.Context, text string, src, dst language.Tag) (string, error) {
	if err := checkLanguages(src, dst); err != nil {
		return "", err
	}
	plain := order.StripFormatting(text)
	if plain == "" {
		return "", ErrEmptyTranslation
	}
	if src == dst {
		return plain, nil
	}

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", src.Code())
	q.Set("tl", dst.Code())
	q.Set("dt", "t")
	q.Set("q", plain)
	if key := c.keys.Next(); key != "" {
		q.Set("key", key)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translation request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return "", &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	if !gjson.ValidBytes(body) {
		return "", errors.New("decode response: invalid JSON")
	}

	// The response is a nested array; element 0 lists [translated, source, ...]
	// segments.
	var sb strings.Builder
	for _, seg := range gjson.GetBytes(body, "0.#.0").Array() {
		sb.WriteString(seg.String())
	}
	translated := strings.TrimSpace(sb.String())
	if translated == "" {
		return "", ErrEmptyTranslation
	}

	log.Debug().
		Str("source", src.Code()).
		Str("target", dst.Code()).
		Int("chars", len(translated)).
		Msg("Translation received")

	return translated, nil
}
