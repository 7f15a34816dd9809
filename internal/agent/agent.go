// Package agent runs the fixed two-stage analyst → writer conversation that
// turns retrieved business data into a finished report. Stage one has a data
// analyst persona extract findings from the retrieval context; stage two has
// a report writer persona shape those findings into an executive-ready
// document. Each stage is a single model exchange - no tool calls, no
// multi-turn history.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/brieflyhq/briefly/internal/errdefs"
	"github.com/brieflyhq/briefly/internal/logging"
	"github.com/brieflyhq/briefly/internal/rag"
)

// analystPrompt establishes the data analyst persona for the first stage.
const analystPrompt = `You are a Senior Data Analyst specializing in sales and marketing analytics.

Your responsibilities:
1. Analyze sales and marketing data provided to you
2. Identify trends, patterns, and anomalies
3. Calculate key metrics and KPIs
4. Provide data-driven insights
5. Be precise and analytical in your findings

You receive context retrieved from a vector database containing real sales
and marketing data. Base all your analysis on this retrieved context.`

// writerPrompt establishes the report writer persona for the second stage.
const writerPrompt = `You are a Professional Report Writer specialized in business reporting.

Your responsibilities:
1. Take analytical findings and create comprehensive reports
2. Structure reports with clear sections (Executive Summary, Key Findings, etc.)
3. Write in a professional, clear, and engaging manner
4. Provide actionable recommendations
5. Format reports properly with bullet points and sections

Create reports that executives can easily understand and act upon.`

// defaultCallTimeout bounds each individual model call.
const defaultCallTimeout = 120 * time.Second

// defaultTopK is the number of retrieval results injected per report.
const defaultTopK = 8

// Stage identifies where a report generation run currently is.
type Stage string

const (
	// StageAnalyzing is the first stage: the analyst extracts findings.
	StageAnalyzing Stage = "analyzing"
	// StageWriting is the second stage: the writer shapes the report.
	StageWriting Stage = "writing"
	// StageDone means both stages completed.
	StageDone Stage = "done"
)

// chatModel is the minimal surface the orchestrator needs from an LLM
// backend. model.ToolCallingChatModel satisfies it.
type chatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Config holds the dependencies required to construct a ReportAgent.
type Config struct {
	// ChatModel is the LLM backend constructed by the provider factory.
	ChatModel chatModel

	// Retriever supplies grounding context for report queries.
	// May be nil, in which case reports run with the no-context sentinel.
	Retriever rag.Retriever

	// ContextBuilder renders retrieval results into the prompt context block.
	// Defaults to rag.NewContextBuilder() if nil.
	ContextBuilder *rag.ContextBuilder

	// TopK controls how many retrieval results are injected per report.
	// Defaults to 8 if zero.
	TopK int

	// CallTimeout bounds each individual model call. Defaults to 120s if zero.
	CallTimeout time.Duration
}

// ReportAgent orchestrates the two-stage analyst → writer conversation.
type ReportAgent struct {
	// model is the LLM backend shared by both stages.
	model chatModel

	// retriever is the optional grounding retriever.
	retriever rag.Retriever

	// builder renders retrieval results into a context block.
	builder *rag.ContextBuilder

	// topK is the number of retrieval results per report.
	topK int

	// callTimeout bounds each individual model call.
	callTimeout time.Duration
}

// Result is the output of a full report generation run.
type Result struct {
	// Query is the analytical question the report answers.
	Query string

	// Category is the retrieval filter that was applied ("" = all).
	Category string

	// Context is the rendered retrieval context the analyst saw.
	Context rag.ContextBlock

	// Findings is the analyst's verbatim stage-one output.
	Findings string

	// Report is the writer's verbatim final report text.
	Report string
}

// New constructs a ReportAgent from the provided Config.
func New(cfg *Config) (*ReportAgent, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("agent: ChatModel must not be nil")
	}

	builder := cfg.ContextBuilder
	if builder == nil {
		builder = rag.NewContextBuilder()
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	return &ReportAgent{
		model:       cfg.ChatModel,
		retriever:   cfg.Retriever,
		builder:     builder,
		topK:        topK,
		callTimeout: timeout,
	}, nil
}

// RunAnalysis executes the analyst stage: one model call that extracts key
// metrics, trends and insights from the retrieval context. The response is
// returned verbatim. Errors, timeouts and empty responses are classified as
// errdefs.ErrUpstream.
func (a *ReportAgent) RunAnalysis(ctx context.Context, query, contextBlock string) (string, error) {
	prompt := fmt.Sprintf(`Based on the following data retrieved from our database, please analyze and identify key insights:

Query: %s

%s

Please provide:
1. Key metrics and numbers
2. Notable trends
3. Top performers
4. Areas of concern
5. Data-driven insights`, query, contextBlock)

	return a.generate(ctx, StageAnalyzing, analystPrompt, prompt)
}

// RunWriting executes the writer stage: one model call that turns the
// analyst's findings into the final report. The response is returned
// verbatim with the same error classification as RunAnalysis.
func (a *ReportAgent) RunWriting(ctx context.Context, query, findings string) (string, error) {
	prompt := fmt.Sprintf(`Based on the data analyst's findings, create a comprehensive professional report.

Original Query: %s

Data Analyst's Findings:
%s

Create a detailed report with these sections:
1. Executive Summary
2. Key Findings
3. Detailed Analysis
4. Insights and Trends
5. Recommendations

Make it professional, clear, and actionable.`, query, findings)

	return a.generate(ctx, StageWriting, writerPrompt, prompt)
}

// GenerateReport composes retrieval, analysis and writing into one run.
// An empty retrieval result is not an error: the analyst runs against the
// no-context sentinel and reports the absence of data. A retrieval failure
// is an error - reports must not silently present ungrounded analysis as
// data-driven.
func (a *ReportAgent) GenerateReport(ctx context.Context, query, category string, limit int) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errdefs.InvalidArgumentf("agent: query must not be empty")
	}
	if limit < 0 {
		return nil, errdefs.InvalidArgumentf("agent: limit must not be negative, got %d", limit)
	}
	if limit == 0 {
		limit = a.topK
	}

	log := logging.FromContext(ctx)

	block := rag.ContextBlock{}
	if a.retriever != nil {
		docs, err := a.retriever.Retrieve(ctx, query, category, limit)
		if err != nil {
			return nil, fmt.Errorf("agent: retrieval failed: %w", err)
		}
		block = a.builder.Build(docs)
		log.Debug("agent: retrieval complete",
			slog.Int("results", block.Len()),
			slog.String("category", category),
		)
	} else {
		block = a.builder.Build(nil)
	}

	log.Info("agent: analyst stage starting", slog.String("stage", string(StageAnalyzing)))
	findings, err := a.RunAnalysis(ctx, query, block.Text())
	if err != nil {
		return nil, err
	}

	log.Info("agent: writer stage starting", slog.String("stage", string(StageWriting)))
	report, err := a.RunWriting(ctx, query, findings)
	if err != nil {
		return nil, err
	}

	log.Info("agent: report generation complete", slog.String("stage", string(StageDone)))

	return &Result{
		Query:    query,
		Category: category,
		Context:  block,
		Findings: findings,
		Report:   report,
	}, nil
}

// GenerateCustom runs a single analyst exchange with a caller-supplied
// pre-formatted prompt. Used for ad-hoc reports where the caller has already
// assembled the context.
func (a *ReportAgent) GenerateCustom(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errdefs.InvalidArgumentf("agent: prompt must not be empty")
	}
	return a.generate(ctx, StageAnalyzing, analystPrompt, prompt)
}

// generate runs one system+user exchange under the per-call timeout.
func (a *ReportAgent) generate(ctx context.Context, stage Stage, system, user string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	msgs := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}

	resp, err := a.model.Generate(callCtx, msgs)
	if err != nil {
		return "", errdefs.Upstreamf("agent: %s stage model call failed: %v", stage, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", errdefs.Upstreamf("agent: %s stage returned empty response", stage)
	}

	return resp.Content, nil
}
