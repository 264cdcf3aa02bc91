// internal/store/postgres.go

// Package store provides the persistence sinks for experiment records:
// Postgres for queryable results, JSONL artifacts for offline analysis,
// a fan-out over several sinks, and a no-op sink for runs without
// persistence.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mwiater/miasma/internal/classify"
	"github.com/mwiater/miasma/internal/experiment"
	"github.com/mwiater/miasma/internal/logging"
)

// schema holds the three experiment tables. Open applies it on every
// connect; CREATE TABLE IF NOT EXISTS keeps reruns cheap.
const schema = `
CREATE TABLE IF NOT EXISTS experiments (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	hypothesis TEXT,
	description TEXT,
	difficulty TEXT NOT NULL,
	tool_set TEXT NOT NULL,
	context_placement TEXT NOT NULL,
	adversarial_variant TEXT,
	models TEXT[] NOT NULL,
	pollution_levels DOUBLE PRECISION[] NOT NULL,
	iterations INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'running',
	started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS executions (
	id BIGSERIAL PRIMARY KEY,
	experiment_id UUID NOT NULL REFERENCES experiments(id),
	model TEXT NOT NULL,
	pollution_level DOUBLE PRECISION NOT NULL,
	iteration INTEGER NOT NULL,
	difficulty TEXT NOT NULL,
	tool_set TEXT NOT NULL,
	context_placement TEXT NOT NULL,
	adversarial_variant TEXT,
	prompt_hash TEXT NOT NULL,
	context_repetitions INTEGER NOT NULL,
	response_text TEXT,
	classification TEXT NOT NULL,
	success BOOLEAN NOT NULL,
	called_any_tool BOOLEAN NOT NULL,
	called_target_tool BOOLEAN NOT NULL,
	used_tool_result BOOLEAN NOT NULL,
	anchored_on_context BOOLEAN NOT NULL,
	extracted_value TEXT,
	confidence_score DOUBLE PRECISION NOT NULL,
	reasoning TEXT,
	latency_ms BIGINT NOT NULL,
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	run_error TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tool_calls (
	id BIGSERIAL PRIMARY KEY,
	execution_id BIGINT NOT NULL REFERENCES executions(id) ON DELETE CASCADE,
	sequence_order INTEGER NOT NULL,
	tool_name TEXT NOT NULL,
	arguments JSONB,
	result JSONB,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_executions_experiment ON executions (experiment_id);
`

// Postgres persists experiments through a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	host string
}

// Open connects to databaseURL, pings the server and applies the
// schema. The caller owns the returned sink and must Close it.
func Open(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	p := &Postgres{pool: pool, host: cfg.ConnConfig.Host}
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// EnsureSchema creates the experiment tables when missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// CreateExperiment inserts the experiment row with status running.
func (p *Postgres) CreateExperiment(ctx context.Context, cfg experiment.Config) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO experiments (id, name, hypothesis, description, difficulty,
			tool_set, context_placement, adversarial_variant, models,
			pollution_levels, iterations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11)`,
		cfg.ID, cfg.Name, cfg.Hypothesis, cfg.Description,
		string(cfg.Difficulty), string(cfg.ToolSet), string(cfg.Placement),
		cfg.VariantLabel(), cfg.Models, cfg.PollutionLevels, cfg.Iterations)
	if err != nil {
		return fmt.Errorf("create experiment: %w", err)
	}
	logging.LogRequest(logging.DirectionToSink, p.host, "", "", "experiment "+cfg.ID.String())
	return nil
}

// SaveExecution writes the execution row and its tool calls in one
// transaction.
func (p *Postgres) SaveExecution(ctx context.Context, rec experiment.Record) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var executionID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO executions (experiment_id, model, pollution_level, iteration,
			difficulty, tool_set, context_placement, adversarial_variant,
			prompt_hash, context_repetitions, response_text,
			classification, success, called_any_tool, called_target_tool,
			used_tool_result, anchored_on_context, extracted_value,
			confidence_score, reasoning, latency_ms, input_tokens, output_tokens,
			run_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11, $12,
			$13, $14, $15, $16, $17, NULLIF($18, ''), $19, $20, $21, $22, $23,
			NULLIF($24, ''), $25)
		RETURNING id`,
		rec.ExperimentID, rec.Model, rec.PollutionLevel, rec.Iteration,
		rec.Difficulty, rec.ToolSet, rec.ContextPlacement, rec.AdversarialVariant,
		rec.PromptHash, rec.ContextRepetitions, rec.ResponseText,
		string(rec.Evaluation.Classification), rec.Success,
		rec.Evaluation.CalledAnyTool, rec.Evaluation.CalledTargetTool,
		rec.Evaluation.UsedToolResult, rec.Evaluation.AnchoredOnContext,
		rec.Evaluation.ExtractedValue, rec.Evaluation.ConfidenceScore,
		rec.Evaluation.Reasoning, rec.LatencyMS, rec.InputTokens, rec.OutputTokens,
		rec.RunError, rec.CreatedAt).Scan(&executionID)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}

	for _, call := range rec.ToolCalls {
		args, err := json.Marshal(call.Arguments)
		if err != nil {
			return fmt.Errorf("marshal tool call arguments: %w", err)
		}
		result, err := json.Marshal(call.Result)
		if err != nil {
			return fmt.Errorf("marshal tool call result: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO tool_calls (execution_id, sequence_order, tool_name,
				arguments, result, error)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))`,
			executionID, call.SequenceOrder, call.ToolName, args, result, call.Error); err != nil {
			return fmt.Errorf("insert tool call: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit execution: %w", err)
	}
	return nil
}

// FinishExperiment marks the experiment row with a final status, for
// example "completed".
func (p *Postgres) FinishExperiment(ctx context.Context, id uuid.UUID, status string) error {
	if _, err := p.pool.Exec(ctx,
		`UPDATE experiments SET status = $2, finished_at = now() WHERE id = $1`,
		id, status); err != nil {
		return fmt.Errorf("finish experiment: %w", err)
	}
	return nil
}

// Summary aggregates executions per (difficulty, model, pollution
// level) for one experiment.
func (p *Postgres) Summary(ctx context.Context, experimentID uuid.UUID) ([]experiment.SummaryRow, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT difficulty, model, pollution_level,
			COUNT(*) FILTER (WHERE classification = 'STC') AS stc,
			COUNT(*) FILTER (WHERE classification = 'FNC') AS fnc,
			COUNT(*) FILTER (WHERE classification = 'FWT') AS fwt,
			COUNT(*) FILTER (WHERE classification = 'FH') AS fh,
			COUNT(*) AS total,
			COALESCE(AVG(latency_ms), 0) AS avg_latency_ms
		FROM executions
		WHERE experiment_id = $1
		GROUP BY difficulty, model, pollution_level
		ORDER BY difficulty, model, pollution_level`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var out []experiment.SummaryRow
	for rows.Next() {
		var row experiment.SummaryRow
		if err := rows.Scan(&row.Difficulty, &row.Model, &row.PollutionLevel,
			&row.STC, &row.FNC, &row.FWT, &row.FH, &row.Total, &row.AvgLatencyMS); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		if row.Total > 0 {
			row.SuccessRate = float64(row.STC) / float64(row.Total) * 100
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}
	return out, nil
}

// Executions returns every execution of an experiment in insertion
// order, shaped for CSV export. Tool call payloads stay in the
// database; only the aggregate trail is loaded.
func (p *Postgres) Executions(ctx context.Context, experimentID uuid.UUID) ([]experiment.Record, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT e.experiment_id, e.model, e.pollution_level, e.iteration,
			e.difficulty, e.tool_set, e.context_placement,
			COALESCE(e.adversarial_variant, ''),
			e.prompt_hash, e.context_repetitions, COALESCE(e.response_text, ''),
			e.classification, e.success, e.called_any_tool, e.called_target_tool,
			e.used_tool_result, e.anchored_on_context,
			COALESCE(e.extracted_value, ''),
			e.confidence_score, COALESCE(e.reasoning, ''), e.latency_ms,
			e.input_tokens, e.output_tokens, COALESCE(e.run_error, ''),
			e.created_at,
			(SELECT COUNT(*) FROM tool_calls t WHERE t.execution_id = e.id),
			(SELECT COALESCE(string_agg(t.tool_name, ',' ORDER BY t.sequence_order), '')
				FROM tool_calls t WHERE t.execution_id = e.id)
		FROM executions e
		WHERE e.experiment_id = $1
		ORDER BY e.id`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var out []experiment.Record
	for rows.Next() {
		var rec experiment.Record
		var classification string
		if err := rows.Scan(
			&rec.ExperimentID, &rec.Model, &rec.PollutionLevel, &rec.Iteration,
			&rec.Difficulty, &rec.ToolSet, &rec.ContextPlacement,
			&rec.AdversarialVariant,
			&rec.PromptHash, &rec.ContextRepetitions, &rec.ResponseText,
			&classification, &rec.Success,
			&rec.Evaluation.CalledAnyTool, &rec.Evaluation.CalledTargetTool,
			&rec.Evaluation.UsedToolResult, &rec.Evaluation.AnchoredOnContext,
			&rec.Evaluation.ExtractedValue,
			&rec.Evaluation.ConfidenceScore, &rec.Evaluation.Reasoning,
			&rec.LatencyMS, &rec.InputTokens, &rec.OutputTokens, &rec.RunError,
			&rec.CreatedAt, &rec.ToolCallCount, &rec.ToolCallSequence); err != nil {
			return nil, fmt.Errorf("scan execution row: %w", err)
		}
		rec.Evaluation.Classification = classify.Classification(classification)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution rows: %w", err)
	}
	return out, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
