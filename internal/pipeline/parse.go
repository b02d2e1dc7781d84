package pipeline

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/memetrace/attribution/pkg/anthropic"
)

// extractText concatenates all text content blocks from a message response.
func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// extractJSON locates the JSON payload in model output that may contain
// markdown code fences or surrounding prose. A fenced block is preferred;
// otherwise the first-to-last brace span of the raw text is used.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	if i := strings.Index(text, "```json"); i >= 0 {
		rest := text[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			text = rest[:j]
		} else {
			text = rest
		}
	} else if strings.HasPrefix(text, "```") {
		rest := strings.TrimPrefix(text, "```")
		if j := strings.LastIndex(rest, "```"); j >= 0 {
			text = rest[:j]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// unmarshalModelJSON extracts and parses a JSON object from raw model output.
// If strict parsing fails it attempts a jsonrepair pass before giving up,
// since models occasionally emit trailing commas or unquoted keys.
func unmarshalModelJSON(text string, v any) error {
	candidate := extractJSON(text)

	if err := json.Unmarshal([]byte(candidate), v); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return eris.Wrap(err, "pipeline: repair model JSON")
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return eris.Wrap(err, "pipeline: parse model JSON")
	}

	zap.L().Debug("pipeline: parsed model JSON after repair pass")
	return nil
}

// toFloat64 attempts to convert an any value to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// toStringSlice coerces a wire value to []string, keeping only string
// elements. Anything that is not an array yields an empty slice.
func toStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// toStringMap coerces a wire value to map[string]string, keeping only
// string values. Anything that is not an object yields an empty map.
func toStringMap(v any) map[string]string {
	obj, ok := v.(map[string]any)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(obj))
	for k, val := range obj {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}

// toIndex converts a wire value to a 1-based integer index. Non-numeric and
// non-integral values are rejected.
func toIndex(v any) (int, bool) {
	f, ok := toFloat64(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// clampScore bounds a score to [0, 100]. Non-finite input coerces to 0.
func clampScore(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// truncate bounds a string to at most n runes, appending an ellipsis when
// content was cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
