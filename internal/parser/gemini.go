package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/brandonwu32/financedashboard/internal/core"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.0-flash"

// Gemini extracts transactions by sending the file inline to a Gemini model.
type Gemini struct {
	client *genai.Client
	model  string
	now    func() time.Time
}

var _ DocumentParser = (*Gemini)(nil)

// NewGemini builds a client for the Gemini Developer API.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model, now: time.Now}, nil
}

func (g *Gemini) ExtractTransactions(ctx context.Context, f File, h Hints) (Result, error) {
	mime := f.MIMEType
	if mime == "" {
		mime = http.DetectContentType(f.Data)
	}
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildPrompt(h, g.now().Year())},
				{InlineData: &genai.Blob{MIMEType: mime, Data: f.Data}},
			},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{}, core.E(core.ErrUpstreamTransient, "generate content", err)
		}
		return Result{}, core.E(core.ErrUpstreamPermanent, "generate content", err)
	}
	raw := resp.Text()
	if strings.TrimSpace(raw) == "" {
		return Result{}, core.Errorf(core.ErrUpstreamPermanent, "generate content", "empty response from model")
	}
	return decodeResult(raw)
}

func buildPrompt(h Hints, year int) string {
	card := strings.TrimSpace(h.CreditCard)
	if card == "" {
		card = "not specified"
	}
	var b strings.Builder
	b.WriteString("You are an expert at parsing financial documents and bank statements.\n\n")
	b.WriteString("Extract every transaction in the attached statement or screenshot. For each one return:\n")
	b.WriteString("- \"date\": string, ISO format \"YYYY-MM-DD\"\n")
	b.WriteString("- \"description\": merchant name\n")
	b.WriteString("- \"amount\": positive number\n")
	b.WriteString("- \"category\": one of Discretionary, Restaurant, Grocery; use Discretionary when unclear\n")
	fmt.Fprintf(&b, "- \"creditCard\": card name (%s)\n\n", card)
	if cutoff := strings.TrimSpace(h.CutoffDate); cutoff != "" {
		fmt.Fprintf(&b, "Only include transactions from %s onwards. ", cutoff)
	}
	fmt.Fprintf(&b, "If a year is not written, assume %d.\n\n", year)
	b.WriteString("Return ONLY a raw JSON object, no Markdown, shaped as:\n")
	b.WriteString(`{"transactions":[{"date":"YYYY-MM-DD","description":"","amount":0.00,"category":"","creditCard":"","status":"completed"}],"confidence":0.95,"warnings":[]}`)
	b.WriteString("\nPut unclear amounts or dates in warnings.\n")
	return b.String()
}

func decodeResult(raw string) (Result, error) {
	clean := cleanModelJSON(raw)
	var res Result
	if err := json.Unmarshal([]byte(clean), &res); err != nil {
		return Result{}, core.E(core.ErrUpstreamPermanent, "decode model output", err)
	}
	return res, nil
}

// cleanModelJSON strips Markdown fences and any text around the outermost
// JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = strings.TrimSpace(s[idx+1:])
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}
