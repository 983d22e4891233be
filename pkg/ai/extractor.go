package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lineupwatch/lineupwatch/internal/utils"
	"github.com/lineupwatch/lineupwatch/pkg/whttp"
	"github.com/tidwall/gjson"
)

var (
	// ErrBackend means the extraction service could not be reached or refused the call.
	ErrBackend = errors.New("extraction backend failed")
	// ErrUnparseable means the service answered but no show list could be read from it.
	ErrUnparseable = errors.New("unparseable extraction output")
)

// ShowRecord is one show as described by the extraction backend.
type ShowRecord struct {
	Date          string   `json:"date"`
	Time          string   `json:"time"`
	VenueLocation string   `json:"venue_location,omitempty"`
	Comedians     []string `json:"comedians"`
	ShowURL       string   `json:"show_url,omitempty"`
}

// Config controls how the extractor behaves.
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	Endpoint  string
	MaxTokens int
	Client    *whttp.Client
}

// Extractor turns cleaned page text into show records. Output is best effort:
// the service is non-deterministic and its text is treated as untrusted.
type Extractor interface {
	ExtractShows(ctx context.Context, text, venueName string) ([]ShowRecord, error)
}

const (
	defaultProvider  = "openai"
	defaultModel     = "gpt-4.1-mini"
	defaultEndpoint  = "https://api.openai.com/v1/chat/completions"
	defaultMaxTokens = 4096
)

// NewExtractor builds a concrete Extractor implementation based on the provided config.
func NewExtractor(cfg Config) (Extractor, error) {
	cfg.Provider = strings.TrimSpace(strings.ToLower(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = defaultProvider
	}

	switch cfg.Provider {
	case "openai":
		return newOpenAIExtractor(cfg)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

type openAIExtractor struct {
	apiKey    string
	model     string
	endpoint  string
	maxTokens int
	client    *whttp.Client
}

func newOpenAIExtractor(cfg Config) (*openAIExtractor, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("show extraction requires an API key (set ai.api_key in config or OPENAI_API_KEY)")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	client := cfg.Client
	if client == nil {
		client = whttp.MustNewClient(0)
	}

	return &openAIExtractor{
		apiKey:    apiKey,
		model:     model,
		endpoint:  endpoint,
		maxTokens: maxTokens,
		client:    client,
	}, nil
}

// ExtractShows sends one completion request for the whole page.
func (e *openAIExtractor) ExtractShows(ctx context.Context, text, venueName string) ([]ShowRecord, error) {
	utils.Log.Debugf("[ai] extracting shows for %s from %d chars", venueName, len(text))

	reqBody := openAIChatRequest{
		Model: e.model,
		Messages: []openAIMessage{
			{Role: "user", Content: BuildPrompt(text, venueName)},
		},
		Temperature: 0,
		MaxTokens:   e.maxTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	res, err := e.client.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method: "POST",
		URL:    e.endpoint,
		Body:   string(bodyBytes),
		Headers: []whttp.WHTTPHeader{
			{Name: "Authorization", Value: "Bearer " + e.apiKey},
			{Name: "Content-Type", Value: "application/json"},
		},
	})
	if err != nil {
		if res != nil {
			if msg := gjson.Get(res.BodyString, "error.message").String(); msg != "" {
				return nil, fmt.Errorf("%w: %s", ErrBackend, msg)
			}
		}
		return nil, fmt.Errorf("%w: %w", ErrBackend, err)
	}

	content := gjson.Get(res.BodyString, "choices.0.message.content").String()
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrBackend)
	}

	records, err := ParseShows(content)
	if err != nil {
		return nil, err
	}
	utils.Log.Debugf("[ai] %s: extracted %d shows", venueName, len(records))
	return records, nil
}

// BuildPrompt asks for the record shape above. Splitting of performer lists is
// left to the model; callers take the names as given.
func BuildPrompt(text, venueName string) string {
	return fmt.Sprintf(`Extract comedy show information from this %s HTML.

Return a JSON array with this exact structure:
[{
  "date": "YYYY-MM-DD",
  "time": "HH:MM AM/PM",
  "venue_location": "specific room/stage if mentioned (e.g., 'Upstairs', 'Main room')",
  "comedians": ["Full Name 1", "Full Name 2", ...],
  "show_url": "/path/to/show/page"
}]

Important rules:
1. Extract FULL comedian names (first and last names)
2. Parse dates and convert to YYYY-MM-DD format
3. Extract all individual comedian names - split on commas, "&", "and", etc.
4. If you see "& More!" or similar, OMIT it - only list named comedians
5. Include venue location if multiple rooms/stages are mentioned
6. Return ONLY valid JSON, no markdown or explanation

HTML:
%s`, venueName, text)
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
