// Package extract turns free-text onboarding chat into structured profile
// fields using an LLM, validating the model's output against a versioned JSON
// schema before anything touches a profile.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/signalhunt/market/internal/config"
	"github.com/signalhunt/market/pkg/ollama"
	"github.com/signalhunt/market/pkg/repository"
)

// Extraction is the structured response we expect from the LLM.
type Extraction struct {
	Version         string   `json:"version"`
	JobTitle        string   `json:"job_title"`
	Company         string   `json:"company"`
	TechStack       []string `json:"tech_stack"`
	Interests       []string `json:"interests"`
	BuyingStage     string   `json:"buying_stage"`
	Context         string   `json:"context"`
	ProfileComplete bool     `json:"profile_complete"`
	Confidence      *float64 `json:"confidence,omitempty"`
	Reasoning       string   `json:"reasoning"`

	// Raw captures the original model output for auditing/logging.
	Raw string `json:"-"`
}

// Engine wraps an Ollama client and provides extraction helpers.
type Engine struct {
	client *ollama.Client
	cfg    config.EngineConfig
	loader *Loader
	logger *slog.Logger
}

// NewEngine creates a new extraction engine. The prompt template and schema
// are loaded from the repository; missing either is a startup error.
func NewEngine(ctx context.Context, client *ollama.Client, cfg config.EngineConfig, sr repository.SchemaRepo, tr repository.TemplateRepo, logger *slog.Logger) (*Engine, error) {
	// apply sensible defaults
	if cfg.Template.Version == "" {
		cfg.Template.Version = "v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.5
	}
	if logger == nil {
		logger = slog.Default()
	}

	if sr == nil {
		return nil, fmt.Errorf("schema repo is required")
	}
	if tr == nil {
		return nil, fmt.Errorf("template repo is required")
	}

	loader, err := NewLoader(ctx, sr)
	if err != nil {
		return nil, fmt.Errorf("create loader: %w", err)
	}

	// load template for profile chat from DB; fail if not present
	tpl, terr := tr.GetTemplate(ctx, "profile_chat", cfg.Template.Version)
	if terr != nil {
		return nil, fmt.Errorf("load template: %w", terr)
	}
	if tpl == nil || tpl.TemplateTxt == "" {
		return nil, fmt.Errorf("template profile_chat:%s not found", cfg.Template.Version)
	}
	cfg.Template.Template = tpl.TemplateTxt
	cfg.Template.Version = tpl.Version
	cfg.Template.SchemaVersion = tpl.SchemaVer

	return &Engine{client: client, cfg: cfg, loader: loader, logger: logger}, nil
}

// ExtractProfile renders the prompt over the chat transcript, sends it to
// Ollama, and parses and schema-validates the structured response.
func (e *Engine) ExtractProfile(ctx context.Context, role, transcript, existingJSON string) (*Extraction, error) {
	data := map[string]any{"Role": role, "Transcript": transcript, "Existing": existingJSON}
	prompt, err := ollama.RenderTemplate(e.cfg.Template.Template, data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	// call LLM with timeout
	ctxReq, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	out, err := e.client.Generate(ctxReq, e.cfg.Model, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	resp, perr := ParseExtraction(out)
	if perr != nil {
		e.logger.Warn("extraction parse error", "err", perr, "raw", out)
		return nil, fmt.Errorf("parse response: %w", perr)
	}
	resp.Raw = out

	// fill missing version
	if resp.Version == "" {
		resp.Version = e.cfg.Template.Version
	}

	// validate against loader-provided schema
	j := extractJSON(out)
	if j == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	// prefer template's schema_version if provided
	schemaVer := resp.Version
	if e.cfg.Template.SchemaVersion != nil && *e.cfg.Template.SchemaVersion != "" {
		schemaVer = *e.cfg.Template.SchemaVersion
	}

	schema, ok := e.loader.GetSchema(schemaVer)
	if !ok || schema == nil {
		return nil, fmt.Errorf("no schema found for version %s", schemaVer)
	}

	verrs, err := schema.ValidateBytes(ctxReq, []byte(j))
	if err != nil {
		return nil, fmt.Errorf("schema validate error: %w", err)
	}
	if len(verrs) > 0 {
		var sb strings.Builder
		for _, v := range verrs {
			sb.WriteString(v.Message)
			sb.WriteString("; ")
		}
		return nil, fmt.Errorf("response does not match schema: %s", sb.String())
	}

	// assess confidence when the model omitted it
	assessed := AssessConfidence(resp)
	if resp.Confidence == nil {
		resp.Confidence = &assessed
	}

	if *resp.Confidence < e.cfg.MinConfidence {
		e.logger.Info("low extraction confidence", "confidence", *resp.Confidence, "role", role)
	}

	if resp.TechStack == nil {
		resp.TechStack = []string{}
	}
	if resp.Interests == nil {
		resp.Interests = []string{}
	}

	return resp, nil
}

func (e *Engine) ReloadSchemas(ctx context.Context) error {
	return e.loader.Reload(ctx)
}

// ParseExtraction tries to extract a JSON object from arbitrary model output and unmarshal it.
func ParseExtraction(s string) (*Extraction, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("empty response")
	}

	j := extractJSON(s)
	if j == "" {
		return nil, errors.New("no JSON object found in response")
	}

	var r Extraction
	if err := json.Unmarshal([]byte(j), &r); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return &r, nil
}

// extractJSON returns the substring from the first '{' to the last '}' in the input.
// This is a pragmatic approach to handle model outputs that wrap JSON in text or markdown.
func extractJSON(s string) string {
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first == -1 || last == -1 || last < first {
		return ""
	}
	return s[first : last+1]
}

// AssessConfidence returns a simple confidence score when one is not provided.
// Heuristic: identity fields carry most of the weight, context the rest.
func AssessConfidence(r *Extraction) float64 {
	score := 0.0
	if strings.TrimSpace(r.JobTitle) != "" {
		score += 0.35
	}
	if strings.TrimSpace(r.Company) != "" {
		score += 0.35
	}
	if len(r.TechStack)+len(r.Interests) > 0 {
		score += 0.15
	}
	if strings.TrimSpace(r.Context) != "" {
		score += 0.15
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
