// Package classifier asks a hosted language model to categorise complaints
// and to check that an uploaded photo shows a civic issue. Every call fails
// open: an unreachable or confused model never blocks a submission.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultVisionModel = "meta-llama/llama-4-scout-17b-16e-instruct"
	DefaultTextModel   = "llama-3.3-70b-versatile"

	categoryOther    = "Other"
	severityMedium   = "Medium"
	notACivicIssue   = "Not a Civic Issue"
	requestTimeout   = 20 * time.Second
	imageMaxTokens   = 500
	textMaxTokens    = 300
	modelTemperature = 0.1
)

var jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)

// ImageVerdict is the outcome of VerifyImage.
type ImageVerdict struct {
	IsRelevant        bool    `json:"isRelevant"`
	Confidence        float64 `json:"confidence"`
	DetectedIssue     string  `json:"detectedIssue"`
	SuggestedCategory string  `json:"suggestedCategory"`
	Explanation       string  `json:"explanation"`
}

// TextVerdict is the outcome of ClassifyText.
type TextVerdict struct {
	SuggestedCategory string  `json:"suggestedCategory"`
	Severity          string  `json:"severity"`
	Confidence        float64 `json:"confidence"`
	Explanation       string  `json:"explanation"`
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	visionModel string
	textModel   string
	http        *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithVisionModel(model string) Option {
	return func(cl *Client) { cl.visionModel = model }
}

func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		visionModel: DefaultVisionModel,
		textModel:   DefaultTextModel,
		http:        &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VerifyImage judges whether a base64 JPEG shows a civic issue. The category
// and description the reporter chose are deliberately not shown to the model.
func (c *Client) VerifyImage(ctx context.Context, imageBase64, _, _ string) ImageVerdict {
	content := []contentPart{
		{Type: "text", Text: imagePrompt},
		{Type: "image_url", ImageURL: &imageURL{URL: "data:image/jpeg;base64," + imageBase64}},
	}
	reply, err := c.complete(ctx, c.visionModel, content, imageMaxTokens)
	if err != nil {
		log.Printf("image verification error: %v", err)
		return ImageVerdict{
			IsRelevant:        true,
			DetectedIssue:     "Verification unavailable",
			SuggestedCategory: categoryOther,
			Explanation:       "Image verification service temporarily unavailable",
		}
	}

	var parsed struct {
		IsRelevant        *bool    `json:"isRelevant"`
		Confidence        *float64 `json:"confidence"`
		DetectedIssue     string   `json:"detectedIssue"`
		SuggestedCategory string   `json:"suggestedCategory"`
		Explanation       string   `json:"explanation"`
	}
	if !extractJSON(reply, &parsed) {
		return ImageVerdict{
			DetectedIssue:     "Unable to analyze image",
			SuggestedCategory: categoryOther,
			Explanation:       "Image analysis failed to produce structured results",
		}
	}
	verdict := ImageVerdict{
		DetectedIssue:     orDefault(parsed.DetectedIssue, "Unable to determine"),
		SuggestedCategory: orDefault(parsed.SuggestedCategory, categoryOther),
		Explanation:       orDefault(parsed.Explanation, "No explanation provided"),
	}
	if parsed.IsRelevant != nil {
		verdict.IsRelevant = *parsed.IsRelevant
	}
	if parsed.Confidence != nil {
		verdict.Confidence = *parsed.Confidence
	}
	return verdict
}

// ClassifyText suggests a category and severity from the complaint text.
func (c *Client) ClassifyText(ctx context.Context, title, description string) TextVerdict {
	title, description = strings.TrimSpace(title), strings.TrimSpace(description)
	if title == "" && description == "" {
		return TextVerdict{
			SuggestedCategory: categoryOther,
			Severity:          severityMedium,
			Explanation:       "No text provided for classification",
		}
	}

	prompt := fmt.Sprintf(textPrompt, orDefault(title, "(not provided)"), orDefault(description, "(not provided)"))
	reply, err := c.complete(ctx, c.textModel, []contentPart{{Type: "text", Text: prompt}}, textMaxTokens)
	if err != nil {
		log.Printf("text classification error: %v", err)
		return TextVerdict{
			SuggestedCategory: categoryOther,
			Severity:          severityMedium,
			Explanation:       "Classification service temporarily unavailable",
		}
	}

	var parsed struct {
		SuggestedCategory string   `json:"suggestedCategory"`
		Severity          string   `json:"severity"`
		Confidence        *float64 `json:"confidence"`
		Explanation       string   `json:"explanation"`
	}
	if !extractJSON(reply, &parsed) {
		return TextVerdict{
			SuggestedCategory: categoryOther,
			Severity:          severityMedium,
			Explanation:       "Text classification failed to produce structured results",
		}
	}
	verdict := TextVerdict{
		SuggestedCategory: orDefault(parsed.SuggestedCategory, categoryOther),
		Severity:          orDefault(parsed.Severity, severityMedium),
		Confidence:        0.5,
		Explanation:       orDefault(parsed.Explanation, "No explanation provided"),
	}
	if parsed.Confidence != nil {
		verdict.Confidence = *parsed.Confidence
	}
	return verdict
}

type imageURL struct {
	URL string `json:"url"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, model string, content []contentPart, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("no API key configured")
	}
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: content}},
		MaxTokens:   maxTokens,
		Temperature: modelTemperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: unexpected status %d", model, resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", model, err)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}

// extractJSON decodes the first {...} span of a model reply into dst.
func extractJSON(reply string, dst any) bool {
	match := jsonObject.FindString(reply)
	if match == "" {
		return false
	}
	return json.Unmarshal([]byte(match), dst) == nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
