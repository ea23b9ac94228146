package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"screedflow/metrics"
	"screedflow/models"
)

// User-visible replies substituted when text generation fails.
const (
	FallbackReport    = "AI Insight Error."
	FallbackPortfolio = "Portfolio analysis error."
	FallbackChat      = "Assistant unavailable."
)

const assistantInstruction = "You are 'ScreedFlow Pro AI Portfolio Assistant'. You manage multiple floor screeding sites " +
	"and teams for a major contracting company. Suggest intelligent resource movements and budget realignments " +
	"across the whole company."

// SiteSnapshot is the state sent with a single-project report.
type SiteSnapshot struct {
	Baselines models.Baselines        `json:"baselines"`
	Tasks     []models.Task           `json:"tasks"`
	Materials []models.Material       `json:"materials"`
	Team      []models.TeamMember     `json:"team"`
	Summary   *metrics.ProjectSummary `json:"summary,omitempty"`
}

// ReportRequester turns site state into natural-language analysis. It never returns an
// error: failures, timeouts and a missing generator all yield the fixed fallback text.
type ReportRequester struct {
	gen        Generator
	timeout    time.Duration
	logger     *zap.Logger
	onFallback func(kind string)
}

type ReportOption func(*ReportRequester)

// WithTimeout bounds each generator call. Non-positive values keep the default.
func WithTimeout(d time.Duration) ReportOption {
	return func(r *ReportRequester) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithReportLogger(l *zap.Logger) ReportOption {
	return func(r *ReportRequester) { r.logger = l }
}

// WithFallbackHook is called with "report", "portfolio" or "chat" each time a fallback is served.
func WithFallbackHook(fn func(kind string)) ReportOption {
	return func(r *ReportRequester) { r.onFallback = fn }
}

// NewReportRequester accepts a nil generator, in which case every call falls back.
func NewReportRequester(gen Generator, opts ...ReportOption) *ReportRequester {
	r := &ReportRequester{gen: gen, timeout: 30 * time.Second, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

func (r *ReportRequester) RequestReport(ctx context.Context, snap SiteSnapshot) string {
	prompt := fmt.Sprintf(`
Analyze this construction site project for a floor screeding contractor.

BASELINES: %s
CURRENT TASKS: %s
MATERIALS: %s
TEAM: %s
DERIVED FIGURES: %s

Compare Current Progress vs Original Baselines.
Provide a concise report on Schedule Variance, Budget Variance, Biggest Risk, and Mitigation Strategy.
`, asJSON(snap.Baselines), asJSON(snap.Tasks), asJSON(snap.Materials), asJSON(snap.Team), asJSON(snap.Summary))

	return r.generate(ctx, "report", FallbackReport, "", prompt)
}

func (r *ReportRequester) PortfolioAnalysis(ctx context.Context, snap models.Snapshot) string {
	prompt := fmt.Sprintf(`
Analyze the entire ScreedFlow Pro screeding portfolio.
PROJECTS: %s
ALL TASKS: %s
ALL TEAM: %s

OBJECTIVE:
1. Identify which project is at highest risk of missing its baseline completion date.
2. Suggest if crew should be moved between projects (e.g. from a completed site to a delayed one).
3. Alert on any global resource bottlenecks (e.g. "Only 1 mixer available for 3 active sites").
`, asJSON(snap.Projects), asJSON(snap.Tasks), asJSON(snap.Team))

	return r.generate(ctx, "portfolio", FallbackPortfolio, "", prompt)
}

// Chat answers one conversational turn. The full context is resent on every call.
func (r *ReportRequester) Chat(ctx context.Context, message string, siteContext any) string {
	prompt := fmt.Sprintf("Context: %s. User: %s", asJSON(siteContext), message)
	return r.generate(ctx, "chat", FallbackChat, assistantInstruction, prompt)
}

type generated struct {
	text string
	err  error
}

// generate abandons the pending call when ctx ends or the timeout passes. The generator
// receives the same deadline, so its goroutine exits once it honours cancellation.
func (r *ReportRequester) generate(ctx context.Context, kind, fallback, system, prompt string) string {
	if r.gen == nil {
		return r.fallback(kind, fallback, fmt.Errorf("no generator configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan generated, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- generated{err: fmt.Errorf("generator panic: %v", rec)}
			}
		}()
		text, err := r.gen.Generate(ctx, system, prompt)
		done <- generated{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return r.fallback(kind, fallback, res.err)
		}
		return res.text
	case <-ctx.Done():
		return r.fallback(kind, fallback, ctx.Err())
	}
}

func (r *ReportRequester) fallback(kind, text string, err error) string {
	r.logger.Warn("text generation failed, serving fallback", zap.String("kind", kind), zap.Error(err))
	if r.onFallback != nil {
		r.onFallback(kind)
	}
	return text
}

func asJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}
