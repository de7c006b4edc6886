// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reliability derives a confidence score for a displayed search
// result from its source coverage, data freshness, and retrieval method.
// All functions are pure; inputs are clamped, never rejected.
package reliability

// Method identifies how the displayed result was obtained.
type Method string

const (
	MethodLive       Method = "live"
	MethodCacheFresh Method = "cache_fresh"
	MethodCacheStale Method = "cache_stale"
)

// Level is the user-facing reliability label.
type Level string

const (
	LevelAlta  Level = "Alta"
	LevelMedia Level = "Media"
	LevelBaixa Level = "Baixa"
)

// Score is the derived reliability of a result. It is computed on demand and
// never persisted.
type Score struct {
	Score float64 `json:"score"`
	Level Level   `json:"level"`
}

// FreshnessScore maps data age in minutes to a sub-score. Step function with
// inclusive lower bounds, no interpolation.
func FreshnessScore(ageMinutes float64) float64 {
	if ageMinutes < 0 {
		ageMinutes = 0
	}
	switch {
	case ageMinutes < 5:
		return 1.0
	case ageMinutes < 60:
		return 0.7
	case ageMinutes < 360:
		return 0.4
	default:
		return 0.1
	}
}

// MethodScore maps the retrieval method to a sub-score. Unknown methods
// score as stale cache.
func MethodScore(m Method) float64 {
	switch m {
	case MethodLive:
		return 1.0
	case MethodCacheFresh:
		return 0.8
	default:
		return 0.4
	}
}

// Calculate combines coverage (0-100, clamped), age in minutes, and retrieval
// method into a 0-1 score and its label. Boundary behavior: a score of
// exactly 0.8 is Media (Alta requires more), a score of exactly 0.5 is Media
// (not Baixa).
func Calculate(coveragePercent, ageMinutes float64, m Method) Score {
	if coveragePercent < 0 {
		coveragePercent = 0
	}
	if coveragePercent > 100 {
		coveragePercent = 100
	}

	score := 0.5*(coveragePercent/100) + 0.3*FreshnessScore(ageMinutes) + 0.2*MethodScore(m)

	return Score{Score: score, Level: levelFor(score)}
}

func levelFor(score float64) Level {
	switch {
	case score > 0.8:
		return LevelAlta
	case score >= 0.5:
		return LevelMedia
	default:
		return LevelBaixa
	}
}

// DeriveMethod maps the response state reported by the backend and the local
// cache status to a retrieval method. An empty response state means the
// result came straight from a live search.
func DeriveMethod(responseState, cacheStatus string) Method {
	switch responseState {
	case "", "live", "degraded":
		return MethodLive
	case "cached":
		if cacheStatus == "fresh" {
			return MethodCacheFresh
		}
		return MethodCacheStale
	case "empty_failure":
		return MethodCacheStale
	default:
		return MethodLive
	}
}
