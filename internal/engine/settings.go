package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"briefsearch/internal/search"
)

const (
	DefaultMaxResults = 10
	MinMaxResults     = 1
	MaxMaxResults     = 30
)

// Settings are the per-request search options.
type Settings struct {
	MaxResults int                 `json:"max_results"`
	SafeSearch bool                `json:"safe_search"`
	Provider   search.ProviderName `json:"provider"`
}

func DefaultSettings() Settings {
	return Settings{
		MaxResults: DefaultMaxResults,
		SafeSearch: true,
		Provider:   search.ProviderAuto,
	}
}

// SettingsFromMapping builds Settings from untrusted input such as a decoded
// JSON body. Missing keys take defaults; max_results falls back to the
// default when it is not a number and is then clamped; unknown providers
// become auto; safe_search accepts bools, numbers and the strings
// 1/true/yes/on.
func SettingsFromMapping(payload map[string]any) Settings {
	settings := DefaultSettings()
	if payload == nil {
		return settings
	}

	if raw, ok := payload["max_results"]; ok {
		if n, ok := coerceInt(raw); ok {
			settings.MaxResults = n
		}
	}
	if raw, ok := payload["provider"]; ok && raw != nil {
		if name, ok := search.ParseProviderName(fmt.Sprint(raw)); ok {
			settings.Provider = name
		}
	}
	if raw, ok := payload["safe_search"]; ok {
		settings.SafeSearch = coerceBool(raw, true)
	}
	return settings.Normalized()
}

// Normalized clamps MaxResults and replaces an unknown provider with auto.
func (s Settings) Normalized() Settings {
	if s.MaxResults < MinMaxResults {
		s.MaxResults = MinMaxResults
	}
	if s.MaxResults > MaxMaxResults {
		s.MaxResults = MaxMaxResults
	}
	name, ok := search.ParseProviderName(string(s.Provider))
	if !ok {
		name = search.ProviderAuto
	}
	s.Provider = name
	return s
}

func coerceInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return clampInt64(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return clampInt64(int64(math.Max(math.Min(v, math.MaxInt32), math.MinInt32))), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return clampInt64(n), true
		}
		return 0, false
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func clampInt64(v int64) int {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int(v)
}

func coerceBool(raw any, fallback bool) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			return true
		default:
			return false
		}
	default:
		return fallback
	}
}
