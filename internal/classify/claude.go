// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/pdiddy/screening-engine/internal/httputil"
	"github.com/pdiddy/screening-engine/pkg/types"
)

// screeningPromptTmpl asks the model for a single JSON decision object.
var screeningPromptTmpl = template.Must(template.New("screening").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`You are screening studies for a systematic literature review. Decide whether the study below meets the review criteria.

Inclusion criteria (the study should meet all of them):
{{- range .Criteria.Inclusion}}
- {{.}}
{{- else}}
- none
{{- end}}

Exclusion criteria (the study is excluded if any applies):
{{- range .Criteria.Exclusion}}
- {{.}}
{{- else}}
- none
{{- end}}

Respond with a JSON object with these fields:
- decision: one of "include", "maybe", "exclude". Use "maybe" when the title and abstract do not carry enough information.
- confidence: a float between 0.0 and 1.0 indicating how certain you are.
- rationale: one or two sentences naming the criteria that drove the decision.

Do not include any text outside the JSON object.

Example response:
{"decision": "exclude", "confidence": 0.85, "rationale": "Animal study; meets exclusion criterion on non-human subjects."}

Study:
Title: {{.Record.Title}}
{{- if .Record.Authors}}
Authors: {{join .Record.Authors "; "}}
{{- end}}
{{- if .Record.Year}}
Year: {{.Record.Year}}
{{- end}}
{{- if .Record.Journal}}
Journal: {{.Record.Journal}}
{{- end}}
{{- if .Record.Keywords}}
Keywords: {{join .Record.Keywords ", "}}
{{- end}}
Abstract: {{if .Record.Abstract}}{{.Record.Abstract}}{{else}}(no abstract){{end}}
`))

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeClassifier calls the Claude Messages API to screen one record.
type ClaudeClassifier struct {
	APIKey    string
	Model     string
	UserAgent string
	Client    *http.Client

	// Timeout bounds one classification including retries on throttling.
	Timeout    time.Duration
	MaxRetries int

	// Prices in USD per million tokens, used to compute Result.Cost.
	InputPricePerMTok  float64
	OutputPricePerMTok float64
}

// NewClaudeClassifier builds a classifier from configuration.
func NewClaudeClassifier(cfg types.ClassifierConfig) *ClaudeClassifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = types.DefaultTimeout
	}
	return &ClaudeClassifier{
		APIKey:             cfg.APIKey,
		Model:              cfg.Model,
		UserAgent:          cfg.UserAgent,
		Client:             &http.Client{},
		Timeout:            timeout,
		MaxRetries:         cfg.MaxRetries,
		InputPricePerMTok:  cfg.InputPricePerMTok,
		OutputPricePerMTok: cfg.OutputPricePerMTok,
	}
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
	Usage   claudeUsage     `json:"usage"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// screeningAnswer is the JSON object the prompt asks for.
type screeningAnswer struct {
	Decision   string   `json:"decision"`
	Confidence *float64 `json:"confidence"`
	Rationale  string   `json:"rationale"`
}

// Classify renders the screening prompt, calls the API and parses the
// decision. Every failure is returned as a *ClassificationError.
func (c *ClaudeClassifier) Classify(ctx context.Context, rec types.StudyRecord, criteria types.CriteriaSet) (Result, error) {
	prompt, err := renderPrompt(rec, criteria)
	if err != nil {
		return Result{}, &ClassificationError{Kind: KindMalformed, Reason: "rendering prompt", Err: err}
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	bodyBytes, err := json.Marshal(claudeRequest{
		Model:     c.Model,
		MaxTokens: 512,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return Result{}, &ClassificationError{Kind: KindMalformed, Reason: "marshaling request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return Result{}, &ClassificationError{Kind: KindTransport, Reason: "creating request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, c.MaxRetries)
	if err != nil {
		return Result{}, AsClassificationError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		kind := KindService
		if httputil.Retryable(resp.StatusCode) || resp.StatusCode == http.StatusPaymentRequired {
			kind = KindQuota
		}
		return Result{}, &ClassificationError{
			Kind:   kind,
			Reason: fmt.Sprintf("Claude API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{}, AsClassificationError(err)
		}
		return Result{}, &ClassificationError{Kind: KindMalformed, Reason: "decoding Claude response", Err: err}
	}
	cost := c.cost(cResp.Usage)

	for _, block := range cResp.Content {
		if block.Type != "text" {
			continue
		}
		res, err := parseAnswer(block.Text)
		if err != nil {
			return Result{}, &ClassificationError{Kind: KindMalformed, Reason: err.Error(), Cost: cost, Err: err}
		}
		res.Cost = cost
		return res, nil
	}
	return Result{}, &ClassificationError{Kind: KindMalformed, Reason: "no text content in Claude API response", Cost: cost}
}

func (c *ClaudeClassifier) cost(u claudeUsage) float64 {
	return (float64(u.InputTokens)*c.InputPricePerMTok + float64(u.OutputTokens)*c.OutputPricePerMTok) / 1e6
}

// parseAnswer extracts the first JSON object from text, tolerating code
// fences or stray prose around it.
func parseAnswer(text string) (Result, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return Result{}, fmt.Errorf("no JSON object in response")
	}

	var ans screeningAnswer
	if err := json.Unmarshal([]byte(text[start:end+1]), &ans); err != nil {
		return Result{}, fmt.Errorf("parsing AI response JSON: %w", err)
	}
	decision, err := types.ParseDecision(ans.Decision)
	if err != nil {
		return Result{}, err
	}
	if ans.Confidence == nil {
		return Result{}, fmt.Errorf("response has no confidence")
	}
	res := Result{
		Decision:   decision,
		Confidence: *ans.Confidence,
		Rationale:  strings.TrimSpace(ans.Rationale),
	}
	if err := res.Validate(); err != nil {
		return Result{}, err
	}
	return res, nil
}

// renderPrompt executes the screening prompt template.
func renderPrompt(rec types.StudyRecord, criteria types.CriteriaSet) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Record   types.StudyRecord
		Criteria types.CriteriaSet
	}{Record: rec, Criteria: criteria}
	if err := screeningPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
