package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/storelens/storelens/server/internal/config"
)

// deliver sends flags to all targets. Errors are logged but do not affect
// the caller.
func (e *Engine) deliver(hooks []config.WebhookConfig, reportID string, flags []Flag) {
	for _, wh := range hooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = e.sendSlack(url, flags)
		case "teams":
			err = e.sendTeams(url, reportID, flags)
		case "http":
			err = e.sendHTTP(url, reportID, flags)
		default:
			e.logger.Warn("rules: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			e.logger.Error("rules: webhook delivery failed",
				"type", wh.Type,
				"report_id", reportID,
				"err", err,
			)
		} else {
			e.logger.Debug("rules: webhook delivered",
				"type", wh.Type,
				"report_id", reportID,
				"flags", len(flags),
			)
		}
	}
}

func (e *Engine) sendSlack(url string, flags []Flag) error {
	lines := make([]string, 0, len(flags))
	for _, f := range flags {
		lines = append(lines, fmt.Sprintf("*%s* %s", severityLabel(f.Severity), f.Message))
	}
	body, _ := json.Marshal(map[string]string{"text": strings.Join(lines, "\n")})
	return e.post(url, body)
}

func (e *Engine) sendTeams(url, reportID string, flags []Flag) error {
	lines := make([]string, 0, len(flags))
	for _, f := range flags {
		lines = append(lines, f.Message)
	}
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(highest(flags)),
		"summary":    "storelens report " + reportID,
		"title":      fmt.Sprintf("storelens: %d rule(s) fired", len(flags)),
		"text":       strings.Join(lines, "<br>"),
	}
	body, _ := json.Marshal(payload)
	return e.post(url, body)
}

func (e *Engine) sendHTTP(url, reportID string, flags []Flag) error {
	body, _ := json.Marshal(map[string]interface{}{"report_id": reportID, "flags": flags})
	return e.post(url, body)
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// highest returns the most severe severity among flags.
func highest(flags []Flag) string {
	best := "info"
	for _, f := range flags {
		switch {
		case f.Severity == "critical":
			return "critical"
		case f.Severity == "warning":
			best = "warning"
		}
	}
	return best
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
