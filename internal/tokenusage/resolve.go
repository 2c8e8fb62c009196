// Package tokenusage derives token counts from loosely-shaped run
// payloads. The upstream writers disagree on both field names and nesting,
// so resolution scans a fixed priority order of candidate objects and key
// aliases and takes the first value that coerces to a non-negative count.
package tokenusage

import (
	"strconv"
	"strings"
)

// Container keys probed for nested usage objects, in priority order.
var containerKeys = []string{
	"usage", "tokenUsage", "token_usage", "tokens",
	"modelUsage", "model_usage", "metrics", "stats",
}

var (
	inputAliases  = []string{"inputTokens", "input_tokens", "promptTokens", "prompt_tokens", "requestTokens", "request_tokens"}
	outputAliases = []string{"outputTokens", "output_tokens", "completionTokens", "completion_tokens", "responseTokens", "response_tokens"}
	totalAliases  = []string{"totalTokens", "total_tokens", "tokenCount", "token_count"}
)

// Usage holds the resolved counts. A nil field means the quantity was not
// reported anywhere upstream; that is not an error.
type Usage struct {
	Input  *int64
	Output *int64
	Total  *int64
}

// Empty reports whether no quantity resolved.
func (u Usage) Empty() bool {
	return u.Input == nil && u.Output == nil && u.Total == nil
}

// Resolve scans the run object, the outcome object, and their nested usage
// containers. The three quantities resolve independently, so input and
// output may come from different candidate objects.
func Resolve(run, outcome map[string]any) Usage {
	return resolveFrom(collect(run, outcome))
}

// ResolveEntry applies the same scan to a session-index entry. Used as the
// fallback when the run itself carries no token data.
func ResolveEntry(entry map[string]any) Usage {
	return resolveFrom(collect(entry, nil))
}

func resolveFrom(candidates []map[string]any) Usage {
	u := Usage{
		Input:  scan(candidates, inputAliases),
		Output: scan(candidates, outputAliases),
		Total:  scan(candidates, totalAliases),
	}
	if u.Total == nil && u.Input != nil && u.Output != nil {
		total := *u.Input + *u.Output
		u.Total = &total
	}
	return u
}

// collect builds the candidate list: the objects themselves first, then
// per container key the sub-object from primary and then secondary.
func collect(primary, secondary map[string]any) []map[string]any {
	var out []map[string]any
	if primary != nil {
		out = append(out, primary)
	}
	if secondary != nil {
		out = append(out, secondary)
	}
	for _, key := range containerKeys {
		if nested := subObject(primary, key); nested != nil {
			out = append(out, nested)
		}
		if nested := subObject(secondary, key); nested != nil {
			out = append(out, nested)
		}
	}
	return out
}

func subObject(obj map[string]any, key string) map[string]any {
	if obj == nil {
		return nil
	}
	nested, _ := obj[key].(map[string]any)
	return nested
}

func scan(candidates []map[string]any, aliases []string) *int64 {
	for _, candidate := range candidates {
		for _, key := range aliases {
			v, ok := candidate[key]
			if !ok {
				continue
			}
			if n, ok := Coerce(v); ok {
				return &n
			}
		}
	}
	return nil
}

// Coerce converts a loosely-typed JSON value into a non-negative count.
// Accepts integers, floats, and numeric strings (thousands separators
// tolerated); rejects booleans. Negative values are treated as absent, not
// as an error.
func Coerce(v any) (int64, bool) {
	switch n := v.(type) {
	case bool:
		return 0, false
	case float64:
		if n < 0 {
			return 0, false
		}
		return int64(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return int64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return n, true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}
