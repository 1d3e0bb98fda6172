package rules

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/storelens/storelens/pkg/types"
	"github.com/storelens/storelens/server/internal/config"
)

const defaultSeverity = "warning"

// Flag is one rule that fired against a result.
type Flag struct {
	Rule      string  `json:"rule"`
	Severity  string  `json:"severity"`
	Condition string  `json:"condition"`
	Value     float64 `json:"value"`
	Message   string  `json:"message"`
}

type compiledRule struct {
	name     string
	severity string
	text     string
	cond     condition
}

type ruleSet struct {
	rules    []compiledRule
	webhooks []config.WebhookConfig
}

// Engine evaluates configured threshold rules against metrics results and
// delivers webhook notifications for the flags that fire.
//
// Evaluation holds no state between calls. The rule set is swapped
// atomically by Update, so Engine is safe for concurrent use.
type Engine struct {
	set    atomic.Pointer[ruleSet]
	client *http.Client
	logger *slog.Logger
}

// New creates an Engine from the rules configuration. Every condition is
// parsed up front; the first bad one is returned as an error.
// An Engine with no rules is valid and Evaluate returns nil.
func New(cfg config.RulesConfig) (*Engine, error) {
	e := &Engine{client: &http.Client{Timeout: 10 * time.Second}, logger: slog.Default()}
	if err := e.Update(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// Update replaces the rule set. On error the previous set stays active.
func (e *Engine) Update(cfg config.RulesConfig) error {
	set := &ruleSet{webhooks: cfg.Webhooks}
	for _, r := range cfg.Rules {
		c, err := parseCondition(r.Condition)
		if err != nil {
			return fmt.Errorf("rules: %s: %w", r.Name, err)
		}
		sev := r.Severity
		if sev == "" {
			sev = defaultSeverity
		}
		set.rules = append(set.rules, compiledRule{name: r.Name, severity: sev, text: r.Condition, cond: c})
	}
	e.set.Store(set)
	return nil
}

// Len returns the number of active rules.
func (e *Engine) Len() int {
	return len(e.set.Load().rules)
}

// Evaluate tests every rule against res and returns the flags that fire,
// in configuration order.
func (e *Engine) Evaluate(res types.MetricsResult) []Flag {
	set := e.set.Load()
	var flags []Flag
	for _, r := range set.rules {
		fires, v := r.cond.eval(res)
		if !fires {
			continue
		}
		flags = append(flags, Flag{
			Rule:      r.name,
			Severity:  r.severity,
			Condition: r.text,
			Value:     v,
			Message:   fmt.Sprintf("[%s] %s fired: %s (value %.2f)", r.severity, r.name, r.text, v),
		})
	}
	return flags
}

// Notify logs every fired flag and delivers flags to the configured
// webhooks in the background. Failures are logged and never reach the
// caller.
func (e *Engine) Notify(reportID string, flags []Flag) {
	for _, f := range flags {
		e.logger.Warn("rule fired", "rule", f.Rule, "severity", f.Severity, "value", f.Value, "report_id", reportID)
	}
	if len(flags) == 0 {
		return
	}
	set := e.set.Load()
	if len(set.webhooks) == 0 {
		return
	}
	go e.deliver(set.webhooks, reportID, flags)
}
