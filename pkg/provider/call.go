package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/zen-systems/boardroom/pkg/adapter"
	"github.com/zen-systems/boardroom/pkg/metrics"
)

// CallReport records one provider call.
type CallReport struct {
	WorkerType   string        `json:"worker_type"`
	Provider     string        `json:"provider"`
	Model        string        `json:"model"`
	Usage        adapter.Usage `json:"usage"`
	Cost         Cost          `json:"cost"`
	FallbackUsed bool          `json:"fallback_used"`
	Duration     time.Duration `json:"duration"`
	Error        string        `json:"error,omitempty"`
	// Transient marks failures that are safe to retry.
	Transient    bool          `json:"transient,omitempty"`
}

// Generator is the call surface pipeline stages depend on. *Selector
// implements it.
type Generator interface {
	Generate(ctx context.Context, workerType, prompt, instructions string, maxTokens int, opts ...CallOption) (string, error)
}

type callOptions struct {
	effort    string
	verbosity string
}

// CallOption adjusts a single Generate call.
type CallOption func(*callOptions)

// WithEffort passes reasoning effort and verbosity hints to the provider.
func WithEffort(effort, verbosity string) CallOption {
	return func(o *callOptions) {
		o.effort = effort
		o.verbosity = verbosity
	}
}

// Generate calls the provider selected for workerType. maxTokens <= 0 uses
// the selection's budget. In hybrid mode a failure on the secondary provider
// is retried exactly once on the primary with the same request; in every
// other case the error is returned as is.
func (s *Selector) Generate(ctx context.Context, workerType, prompt, instructions string, maxTokens int, opts ...CallOption) (string, error) {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	sel := s.Select(workerType)
	if maxTokens <= 0 {
		maxTokens = sel.MaxTokens
	}
	req := adapter.Request{
		Model:           sel.Model,
		Prompt:          prompt,
		Instructions:    instructions,
		Temperature:     adapter.Float(sel.Temperature),
		MaxTokens:       maxTokens,
		ReasoningEffort: co.effort,
		Verbosity:       co.verbosity,
	}

	text, err := s.call(ctx, workerType, sel.Slot, req, false)
	if err == nil {
		return text, nil
	}
	if s.strategy != Hybrid || sel.Slot == SlotPrimary {
		return "", err
	}

	s.logger.Warn().
		Err(err).
		Str("worker", workerType).
		Str("provider", sel.Provider).
		Bool("transient", adapter.IsTransient(err)).
		Str("fallback", s.primary.Name()).
		Msg("provider failed, falling back to primary")
	metrics.ProviderCalls.WithLabelValues(sel.Provider, metrics.OutcomeFallback).Inc()

	req.Model = s.primaryModels.pick(false)
	text, fbErr := s.call(ctx, workerType, SlotPrimary, req, true)
	if fbErr != nil {
		return "", fmt.Errorf("%s failed: %v; fallback %s failed: %w", sel.Provider, err, s.primary.Name(), fbErr)
	}
	return text, nil
}

func (s *Selector) call(ctx context.Context, workerType string, slot Slot, req adapter.Request, fallback bool) (string, error) {
	a := s.adapterFor(slot)
	start := time.Now()
	resp, err := a.Generate(ctx, req)

	report := CallReport{
		WorkerType:   workerType,
		Provider:     a.Name(),
		Model:        req.Model,
		FallbackUsed: fallback,
		Duration:     time.Since(start),
	}
	if err != nil {
		report.Error = err.Error()
		report.Transient = adapter.IsTransient(err)
		s.tracker.Record(report)
		metrics.ProviderCalls.WithLabelValues(a.Name(), metrics.OutcomeError).Inc()
		return "", err
	}
	if resp == nil {
		err := &adapter.AdapterError{Provider: a.Name(), Err: fmt.Errorf("empty response")}
		report.Error = err.Error()
		s.tracker.Record(report)
		metrics.ProviderCalls.WithLabelValues(a.Name(), metrics.OutcomeError).Inc()
		return "", err
	}

	if resp.Model != "" {
		report.Model = resp.Model
	}
	report.Usage = normalizeUsage(resp.Usage)
	s.tracker.Record(report)

	metrics.ProviderCalls.WithLabelValues(a.Name(), metrics.OutcomeOK).Inc()
	metrics.ProviderTokens.WithLabelValues(a.Name(), "prompt").Add(float64(report.Usage.PromptTokens))
	metrics.ProviderTokens.WithLabelValues(a.Name(), "completion").Add(float64(report.Usage.CompletionTokens))

	s.logger.Debug().
		Str("worker", workerType).
		Str("provider", a.Name()).
		Str("model", report.Model).
		Int("tokens", report.Usage.TotalTokens).
		Dur("duration", report.Duration).
		Msg("provider call complete")

	return resp.Text, nil
}
