package usecase

import "encoding/json"

// Bounds applied to untrusted model-emitted tool arguments.
const (
	maxStringArgLen = 50000 // characters
	minNumericArg   = 0
	maxNumericArg   = 1000
)

// emptyArgs is the sanitized form of anything that is not a JSON object.
var emptyArgs = json.RawMessage(`{}`)

// SanitizeArguments bounds a tool-call argument payload before any executor
// sees it. String values are truncated to maxStringArgLen characters, numeric
// values are clamped into [minNumericArg, maxNumericArg], booleans pass
// through, and every other kind (nested object, array, null) is dropped.
// Executors must tolerate absent optional fields.
//
// The function is pure and idempotent: no I/O, no randomness, and applying
// it twice yields the same bytes as applying it once.
func SanitizeArguments(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return emptyArgs
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return emptyArgs
	}

	out := make(map[string]any, len(fields))
	for key, value := range fields {
		switch v := value.(type) {
		case string:
			out[key] = truncateString(v, maxStringArgLen)
		case float64:
			out[key] = clampNumber(v)
		case bool:
			out[key] = v
		}
	}

	// Marshal sorts keys, so equal inputs always produce equal bytes.
	data, err := json.Marshal(out)
	if err != nil {
		return emptyArgs
	}
	return data
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func clampNumber(v float64) float64 {
	if v < minNumericArg {
		return minNumericArg
	}
	if v > maxNumericArg {
		return maxNumericArg
	}
	return v
}
