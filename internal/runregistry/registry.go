// Package runregistry keeps the summaries of finished runs in redis.
package runregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wonny/ship2profile/pkg/redis"
)

// historyLength bounds the per-product run list
const historyLength = 50

// Summary is what the API reports about one run
type Summary struct {
	RunID           string         `json:"run_id"`
	RunName         string         `json:"run_name"`
	Product         string         `json:"product"`
	ReferenceDate   string         `json:"reference_date"`
	ConfigHash      string         `json:"config_hash"`
	Success         bool           `json:"success"`
	Error           string         `json:"error,omitempty"`
	CompletedStages []string       `json:"completed_stages"`
	Rows            map[string]int `json:"rows,omitempty"`
	TenureConflicts int            `json:"tenure_conflicts"`
	PublishFailures []string       `json:"publish_failures,omitempty"`
	StartedAt       time.Time      `json:"started_at"`
	Duration        time.Duration  `json:"duration"`
}

// Registry stores summaries per product
type Registry struct {
	client *redis.Client
}

// New creates a registry. A disabled client turns every call into a no-op.
func New(client *redis.Client) *Registry {
	return &Registry{client: client}
}

func (r *Registry) latestKey(product string) string {
	return r.client.Key("runs", product, "latest")
}

func (r *Registry) historyKey(product string) string {
	return r.client.Key("runs", product, "history")
}

// Record stores s as the latest run and prepends it to the history
func (r *Registry) Record(ctx context.Context, s Summary) error {
	if !r.client.Enabled() {
		return nil
	}
	if err := r.client.SetJSON(ctx, r.latestKey(s.Product), s); err != nil {
		return fmt.Errorf("record latest run: %w", err)
	}
	if err := r.client.PushJSON(ctx, r.historyKey(s.Product), s, historyLength); err != nil {
		return fmt.Errorf("record run history: %w", err)
	}
	return nil
}

// Latest returns the last recorded run, nil when none exists
func (r *Registry) Latest(ctx context.Context, product string) (*Summary, error) {
	if !r.client.Enabled() {
		return nil, nil
	}
	var s Summary
	found, err := r.client.GetJSON(ctx, r.latestKey(product), &s)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &s, nil
}

// History returns up to limit runs, newest first
func (r *Registry) History(ctx context.Context, product string, limit int64) ([]Summary, error) {
	if !r.client.Enabled() {
		return nil, nil
	}
	raw, err := r.client.RangeJSON(ctx, r.historyKey(product), limit)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(raw))
	for _, b := range raw {
		var s Summary
		if err := json.Unmarshal(b, &s); err != nil {
			return nil, fmt.Errorf("decode run summary: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}
