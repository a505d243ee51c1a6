// Package ai defines the AI assistance capability consumed by the cook
// session engine. The engine only consumes structured responses; every
// operation has a deterministic heuristic fallback, and results carry a
// source field so callers never assume a real model produced them.
package ai

import "context"

// Source identifies what produced a draft.
const (
	SourceAI        = "ai"
	SourceHeuristic = "heuristic"
	SourceMock      = "mock"
)

// Step is a lightweight recipe step used in AI requests and responses.
type Step struct {
	Title      string   `json:"title"`
	Bullets    []string `json:"bullets"`
	MinutesEst *int     `json:"minutes_est,omitempty"`
}

// AdjustmentRequest asks for a rewritten step addressing a problem kind
// (e.g. "too_salty", "burning").
type AdjustmentRequest struct {
	RecipeTitle string `json:"recipe_title"`
	Kind        string `json:"kind"`
	Step        Step   `json:"step"`
}

// AdjustmentDraft is the structured response to an AdjustmentRequest.
type AdjustmentDraft struct {
	Title      string   `json:"title"`
	Bullets    []string `json:"bullets"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"`
}

// MethodRequest asks for a step list rewritten for a cooking method.
// The caller supplies the method's label and time-delta heuristic from
// the curated catalog so the rewrite stays consistent with it.
type MethodRequest struct {
	MethodKey    string  `json:"method_key"`
	MethodLabel  string  `json:"method_label"`
	TimeDeltaPct float64 `json:"time_delta_pct"`
	TimeMinutes  int     `json:"time_minutes"`
	Steps        []Step  `json:"steps"`
}

// MethodDraft is the structured response to a MethodRequest.
type MethodDraft struct {
	Steps  []Step `json:"steps"`
	Source string `json:"source"`
}

// Client is the AI assistance capability.
type Client interface {
	SuggestAdjustment(ctx context.Context, req AdjustmentRequest) (*AdjustmentDraft, error)
	RewriteForMethod(ctx context.Context, req MethodRequest) (*MethodDraft, error)
}

// fallbackClient tries a primary client and degrades to a fallback on
// any error. The fallback's source is preserved so callers can tell.
type fallbackClient struct {
	primary  Client
	fallback Client
}

// WithFallback wraps primary so that any failure is served by fallback
// instead of surfacing an error.
func WithFallback(primary, fallback Client) Client {
	return &fallbackClient{primary: primary, fallback: fallback}
}

func (f *fallbackClient) SuggestAdjustment(ctx context.Context, req AdjustmentRequest) (*AdjustmentDraft, error) {
	if draft, err := f.primary.SuggestAdjustment(ctx, req); err == nil {
		return draft, nil
	}
	return f.fallback.SuggestAdjustment(ctx, req)
}

func (f *fallbackClient) RewriteForMethod(ctx context.Context, req MethodRequest) (*MethodDraft, error) {
	if draft, err := f.primary.RewriteForMethod(ctx, req); err == nil {
		return draft, nil
	}
	return f.fallback.RewriteForMethod(ctx, req)
}
