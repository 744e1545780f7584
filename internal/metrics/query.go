package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// Totals aggregates the LLM token/cost counters for one model over the
// lifetime of the scraped series.
type Totals struct {
	Model            string
	PromptTokens     int64
	CompletionTokens int64
	CostUSD          float64
}

// QueryService reads aggregated cost and token totals back out of the
// Prometheus server the orchestrator's /metrics endpoint is scraped
// into, for operator reporting (sdoctl metrics cost).
type QueryService struct {
	queryAPI v1.API
}

// NewQueryService builds a QueryService against a running Prometheus
// server at prometheusURL.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{Address: prometheusURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}
	return &QueryService{queryAPI: v1.NewAPI(client)}, nil
}

// ModelTotals returns the total input tokens, output tokens, and USD
// spend recorded for model across every call made so far.
func (q *QueryService) ModelTotals(ctx context.Context, model_ string) (Totals, error) {
	totals := Totals{Model: model_}

	input, err := q.scalarQuery(ctx, fmt.Sprintf(`sum(sdo_llm_tokens_total{model=%q, direction="input"})`, model_))
	if err != nil {
		return totals, fmt.Errorf("failed to query input tokens: %w", err)
	}
	totals.PromptTokens = int64(input)

	output, err := q.scalarQuery(ctx, fmt.Sprintf(`sum(sdo_llm_tokens_total{model=%q, direction="output"})`, model_))
	if err != nil {
		return totals, fmt.Errorf("failed to query output tokens: %w", err)
	}
	totals.CompletionTokens = int64(output)

	cost, err := q.scalarQuery(ctx, fmt.Sprintf(`sum(sdo_llm_cost_usd_total{model=%q})`, model_))
	if err != nil {
		return totals, fmt.Errorf("failed to query cost: %w", err)
	}
	totals.CostUSD = cost

	return totals, nil
}

func (q *QueryService) scalarQuery(ctx context.Context, query string) (float64, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	vector, ok := result.(model.Vector)
	if !ok || len(vector) == 0 {
		return 0, nil
	}
	return float64(vector[0].Value), nil
}
