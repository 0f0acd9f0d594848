package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dealscout/internal/listing"
	"dealscout/logger"
	pkgerr "dealscout/pkg/errors"
)

// acceptAnswer is the only classification output that accepts a listing.
// Everything else, malformed output included, silently rejects.
const acceptAnswer = "True"

// OllamaClient talks to a local Ollama instance over its generate endpoint.
// Single-turn prompt in, text out; no streaming, no conversation state.
type OllamaClient struct {
	host   string
	model  string
	rules  Ruleset
	client *http.Client
	log    *logger.Logger
}

// NewOllamaClient creates an oracle backed by Ollama.
func NewOllamaClient(host, model string, rules Ruleset) *OllamaClient {
	return &OllamaClient{
		host:   strings.TrimRight(host, "/"),
		model:  model,
		rules:  rules,
		client: &http.Client{Timeout: 120 * time.Second},
		log:    logger.ForOracle(),
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// generate performs one completion round trip.
func (c *OllamaClient) generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", pkgerr.NewOracle("oracle", "marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", pkgerr.NewOracle("oracle", "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", pkgerr.NewNetwork("oracle", "generate", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", pkgerr.NewOracle("oracle",
			fmt.Sprintf("generate unexpected status code: %d (%s)", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", pkgerr.NewOracle("oracle", "decode response", err)
	}

	return out.Response, nil
}

// Classify implements Oracle.
func (c *OllamaClient) Classify(ctx context.Context, l listing.Listing) (bool, error) {
	prompt := fmt.Sprintf(`You are a helpful assistant that determines whether a given classified ad listing is for a computer component or not.

The listing details are as follows:
Title: %s
Description: %s

%s
Only keep the following computer components:
%s
Return only the string "True" if it passes the filter, or "False" if it does not.`,
		l.Title,
		l.Description,
		bulleted(c.rules.ExclusionRules),
		bulleted(c.rules.AllowedCategories),
	)

	answer, err := c.generate(ctx, prompt)
	if err != nil {
		return false, err
	}

	accepted := answer == acceptAnswer
	c.log.Debug().
		Str("title", l.Title).
		Bool("accepted", accepted).
		Msg("Classified listing")

	return accepted, nil
}

// NormalizeTitle implements Oracle. The oracle's output is used verbatim as
// the price-lookup query; no validation is applied.
func (c *OllamaClient) NormalizeTitle(ctx context.Context, l listing.Listing) (string, error) {
	var examples strings.Builder
	for _, ex := range c.rules.NormalizeExamples {
		fmt.Fprintf(&examples, "- Input: %q\n  Output: %q\n", ex.Input, ex.Output)
	}

	prompt := fmt.Sprintf(`You are a helpful assistant that extracts the main product name from a given title string for computer components. Remove any unnecessary details such as specifications, conditions, or seller notes, and return a concise product name. Make sure to autocorrect any spelling mistakes.

%s
Examples:
%s
The title string is %q. Return only the cleaned product name without any additional text.`,
		bulleted(c.rules.NormalizeRules),
		examples.String(),
		l.Title,
	)

	return c.generate(ctx, prompt)
}
