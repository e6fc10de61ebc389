package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"virtualArena/config"
	"virtualArena/fixtures"
	"virtualArena/game"
)

// Client fetches short flavour text from the advisory service. Every call is
// best effort: failures, timeouts and an unconfigured URL all return a
// static fallback, never an error.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = config.AdvisoryTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Prompt      string   `json:"prompt"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// Tip returns a one-line hint for a virtual game.
func (c *Client) Tip(ctx context.Context, gameType game.GameType) string {
	temp := config.AdvisoryTipTemp
	prompt := fmt.Sprintf("Give a short, playful lucky tip for the virtual game %q. "+
		"Mention probability or reading the algorithm. Under 40 words.", gameType)

	text, err := c.generate(ctx, generateRequest{Prompt: prompt, Temperature: &temp})
	if err != nil {
		log.Warn("⚠️  Advisory tip failed", "game", gameType, "err", err)
		return config.FallbackTip
	}
	if text == "" {
		return config.EmptyTip
	}
	return text
}

// Insight returns a one-sentence analysis of a fixture.
func (c *Client) Insight(ctx context.Context, f fixtures.Fixture) string {
	draw := "N/A"
	if f.OddsDraw > 0 {
		draw = fmt.Sprintf("%.2f", f.OddsDraw)
	}
	prompt := fmt.Sprintf("Give a concise, one-sentence betting insight for %s vs %s in %s. Odds: 1(%.2f), X(%s), 2(%.2f).",
		f.TeamA, f.TeamB, f.League, f.OddsA, draw, f.OddsB)

	text, err := c.generate(ctx, generateRequest{Prompt: prompt})
	if err != nil {
		log.Warn("⚠️  Advisory insight failed", "fixture", f.ID, "err", err)
		return config.FallbackInsight
	}
	if text == "" {
		return config.EmptyInsight
	}
	return text
}

func (c *Client) generate(ctx context.Context, req generateRequest) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("advisory service not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+config.AdvisoryGeneratePath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}
