// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package screen holds the decision engine: prompt construction, resolution
// of reasoning responses against the rule policy, and the per-candidate
// screening pipeline.
package screen

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/pdiddy/grant-screener/internal/evidence"
	"github.com/pdiddy/grant-screener/internal/reason"
	"github.com/pdiddy/grant-screener/pkg/types"
)

// Sink persists finished decisions and answers which foundations were
// already screened. Implementations live in internal/sink.
type Sink interface {
	// Processed returns the set of already-recorded foundation names,
	// normalized with evidence.Normalize.
	Processed(ctx context.Context) (map[string]bool, error)
	// Append records one decision.
	Append(ctx context.Context, d *types.Decision) error
}

// Screener runs the evidence → prompt → reasoning → resolve pipeline for one
// candidate at a time.
type Screener struct {
	Rules      *types.RuleConfiguration
	Evidence   *evidence.Aggregator
	Backend    reason.Backend
	MaxRetries int
	Log        *zap.Logger
}

// Summary counts what a screening run did.
type Summary struct {
	Screened      int
	Skipped       int
	WriteFailures int
}

// BuildDecision attaches a resolution to its candidate.
func BuildDecision(cand types.Candidate, r Resolution) *types.Decision {
	return &types.Decision{
		Candidate:      cand,
		Classification: r.Classification,
		Rationale:      r.Rationale,
		Confidence:     r.Confidence,
		NextActionDate: r.NextActionDate,
		Sources:        r.Sources,
	}
}

// ScreenOne evaluates a single candidate. A reasoning failure degrades to a
// YELLOW decision with confidence 0 so one bad candidate cannot abort a run;
// ScreenOne never returns an error.
func (s *Screener) ScreenOne(ctx context.Context, cand types.Candidate) *types.Decision {
	log := s.logger()
	bundle := s.Evidence.Gather(ctx, cand, s.Rules.Org)

	prompt, err := RenderPrompt(s.Rules, cand, bundle.Digest)
	if err != nil {
		log.Warn("prompt construction failed",
			zap.String("candidate", cand.FoundationName),
			zap.Error(err))
		return BuildDecision(cand, degradedResolution(err, bundle))
	}

	resp, err := reason.GenerateWithRetry(ctx, s.Backend, prompt, s.MaxRetries)
	if err != nil {
		log.Warn("reasoning failed",
			zap.String("candidate", cand.FoundationName),
			zap.Error(err))
		return BuildDecision(cand, degradedResolution(err, bundle))
	}

	return BuildDecision(cand, Resolve(s.Rules, resp, bundle))
}

// degradedResolution marks a candidate for manual review when no reasoning
// response was obtained.
func degradedResolution(err error, ev types.EvidenceBundle) Resolution {
	return Resolution{
		Classification: types.ClassYellow,
		Rationale:      "Error during screening: " + err.Error(),
		Confidence:     0.0,
		Sources:        MergeSources(ev.Citations, nil),
	}
}

// Run screens candidates sequentially, skipping foundations the sink already
// holds, and persists each decision as soon as it is computed. A nil sink
// runs the pipeline without reading or writing anything (dry run). Sink write
// failures are counted and logged, never fatal; the run only fails when the
// processed set cannot be loaded.
func (s *Screener) Run(ctx context.Context, candidates []types.Candidate, snk Sink, w io.Writer) (Summary, []*types.Decision, error) {
	log := s.logger()

	processed := map[string]bool{}
	if snk != nil {
		var err error
		processed, err = snk.Processed(ctx)
		if err != nil {
			return Summary{}, nil, fmt.Errorf("loading processed foundations: %w", err)
		}
	}

	var summary Summary
	var remaining []types.Candidate
	for _, cand := range candidates {
		if processed[evidence.Normalize(cand.FoundationName)] {
			summary.Skipped++
			continue
		}
		remaining = append(remaining, cand)
	}
	if summary.Skipped > 0 {
		fmt.Fprintf(w, "Skipping %d already-screened foundation(s)\n", summary.Skipped)
	}

	decisions := make([]*types.Decision, 0, len(remaining))
	for i, cand := range remaining {
		if err := ctx.Err(); err != nil {
			return summary, decisions, err
		}
		fmt.Fprintf(w, "[%d/%d] %s\n", i+1, len(remaining), cand.FoundationName)

		d := s.ScreenOne(ctx, cand)
		decisions = append(decisions, d)
		summary.Screened++
		fmt.Fprintf(w, "  -> %s (confidence %.2f)\n", d.Classification, d.Confidence)

		if snk != nil {
			if err := snk.Append(ctx, d); err != nil {
				summary.WriteFailures++
				log.Warn("recording decision failed",
					zap.String("candidate", cand.FoundationName),
					zap.Error(err))
				fmt.Fprintf(w, "  -> record failed: %v\n", err)
			}
		}
	}

	return summary, decisions, nil
}

func (s *Screener) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
