// Package resolver maps a completed profile to a list of schemes, using the
// completion service when configured and the static catalog otherwise.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/ppiankov/yojana/internal/catalog"
	"github.com/ppiankov/yojana/internal/llm"
	"github.com/ppiankov/yojana/internal/logger"
	"github.com/ppiankov/yojana/internal/metrics"
	"github.com/ppiankov/yojana/internal/model"
	"go.uber.org/zap"
)

// Source identifies where a result came from
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Reason explains a fallback
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonNotConfigured Reason = "not_configured"
	ReasonTransport     Reason = "transport"
	ReasonMalformed     Reason = "malformed"
	ReasonSchema        Reason = "schema"
	ReasonCancelled     Reason = "cancelled" // Caller gave up, upstream not at fault
)

// Outcome is the internal decision behind one resolution
type Outcome struct {
	Schemes  []model.SchemeRecord
	Source   Source
	Reason   Reason
	Err      error // Cause of a fallback, nil otherwise
	Dropped  int   // Completion records discarded by validation
	Provider string
	Duration time.Duration
}

// Resolver resolves profiles. A nil provider means the completion service
// is not configured and every resolution uses the catalog.
type Resolver struct {
	provider llm.Provider
	request  llm.CompletionRequest
	parser   *Parser
	log      *zap.Logger
}

// New creates a resolver around provider, which may be nil
func New(provider llm.Provider, cfg llm.Config, log *zap.Logger) *Resolver {
	parser, err := NewParser()
	if err != nil {
		// The schema is a constant; failing to compile it is a programming error
		panic(err)
	}

	return &Resolver{
		provider: provider,
		request: llm.CompletionRequest{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			MaxTokens:   cfg.MaxTokens,
		},
		parser: parser,
		log:    logger.OrNop(log).Named("resolver"),
	}
}

// FromConfig builds the provider from cfg. Missing or placeholder
// credentials produce a catalog-only resolver.
func FromConfig(cfg llm.Config, log *zap.Logger) *Resolver {
	log = logger.OrNop(log)

	if !llm.Configured(cfg) {
		log.Debug("completion service not configured, using fallback catalog",
			zap.String("provider", cfg.Provider))
		return New(nil, cfg, log)
	}

	provider, err := llm.NewProvider(cfg)
	if err != nil {
		log.Warn("failed to initialize completion provider, using fallback catalog", zap.Error(err))
		return New(nil, cfg, log)
	}
	return New(provider, cfg, log)
}

// Enabled reports whether resolutions attempt the completion service
func (r *Resolver) Enabled() bool {
	return r.provider != nil
}

// ProviderName returns the configured provider name, or "" when disabled
func (r *Resolver) ProviderName() string {
	if r.provider == nil {
		return ""
	}
	return r.provider.Name()
}

// Resolve returns the schemes for p. It never fails: every error path
// yields the fallback catalog entry for the profile's category.
func (r *Resolver) Resolve(ctx context.Context, p model.Profile) []model.SchemeRecord {
	return r.Decide(ctx, p).Schemes
}

// Decide performs one resolution and reports how the result was obtained
func (r *Resolver) Decide(ctx context.Context, p model.Profile) Outcome {
	start := time.Now()
	out := r.decide(ctx, p)
	out.Duration = time.Since(start)

	metrics.ObserveResolution(string(out.Source), string(out.Reason), out.Dropped, out.Duration)
	return out
}

func (r *Resolver) decide(ctx context.Context, p model.Profile) Outcome {
	if r.provider == nil {
		return r.fallback(p, ReasonNotConfigured, nil)
	}

	req := r.request
	req.Prompt = llm.BuildPrompt(p)

	log := r.log.With(zap.String("provider", r.provider.Name()), zap.String("category", string(p.Category)))

	resp, err := r.provider.Complete(ctx, req)
	if err != nil && ctx.Err() != nil {
		log.Debug("completion request cancelled", zap.Error(err))
		return r.fallback(p, ReasonCancelled, err)
	}
	if err != nil {
		log.Warn("completion request failed", zap.Error(err), zap.Int("status", llm.StatusCode(err)))
		return r.fallback(p, ReasonTransport, err)
	}

	parsed, err := r.parser.Parse(resp.Content)
	if err != nil {
		log.Warn("failed to parse completion, using fallback catalog", zap.Error(err))
		return r.fallback(p, ReasonMalformed, err)
	}

	for _, d := range parsed.Dropped {
		log.Debug("dropped non-conforming scheme record", zap.Int("index", d.Index), zap.Strings("issues", d.Issues))
	}

	if len(parsed.Schemes) == 0 {
		log.Warn("completion contained no usable schemes, using fallback catalog", zap.Int("dropped", len(parsed.Dropped)))
		out := r.fallback(p, ReasonSchema, errNoUsableRecords)
		out.Dropped = len(parsed.Dropped)
		return out
	}

	log.Debug("resolved schemes from completion",
		zap.Int("schemes", len(parsed.Schemes)),
		zap.Int("dropped", len(parsed.Dropped)),
		zap.Int("tokens", resp.TokensUsed))

	return Outcome{
		Schemes:  parsed.Schemes,
		Source:   SourceAI,
		Reason:   ReasonNone,
		Dropped:  len(parsed.Dropped),
		Provider: r.provider.Name(),
	}
}

var errNoUsableRecords = errors.New("no conforming scheme records in completion")

func (r *Resolver) fallback(p model.Profile, reason Reason, cause error) Outcome {
	return Outcome{
		Schemes:  catalog.Lookup(p.Category),
		Source:   SourceFallback,
		Reason:   reason,
		Err:      cause,
		Provider: r.ProviderName(),
	}
}
