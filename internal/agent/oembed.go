package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultOEmbedEndpoint is YouTube's oEmbed API.
	DefaultOEmbedEndpoint = "https://www.youtube.com/oembed"

	// FallbackTitle is published when the title cannot be resolved.
	FallbackTitle = "제목 가져오기 실패"
)

// TitleResolver looks up a human-readable title for a video URL.
type TitleResolver interface {
	Title(ctx context.Context, videoURL string) (string, error)
}

// OEmbed resolves titles through an oEmbed endpoint.
type OEmbed struct {
	Endpoint string
	Client   *http.Client
}

// NewOEmbed returns a resolver for YouTube's oEmbed API.
func NewOEmbed() *OEmbed {
	return &OEmbed{
		Endpoint: DefaultOEmbedEndpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type oembedResponse struct {
	Title string `json:"title"`
}

// Title implements TitleResolver.
func (o *OEmbed) Title(ctx context.Context, videoURL string) (string, error) {
	q := url.Values{}
	q.Set("url", videoURL)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("oembed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oembed: unexpected status %s", resp.Status)
	}
	var body oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("oembed: decoding response: %w", err)
	}
	if body.Title == "" {
		return "", fmt.Errorf("oembed: response has no title")
	}
	return body.Title, nil
}
