// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reliability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFreshnessScore(t *testing.T) {
	tests := []struct {
		ageMinutes float64
		want       float64
	}{
		{0, 1.0},
		{4.9, 1.0},
		{5, 0.7},
		{59, 0.7},
		{60, 0.4},
		{359, 0.4},
		{360, 0.1},
		{10000, 0.1},
		{-30, 1.0}, // clamped
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FreshnessScore(tt.ageMinutes), "age %v", tt.ageMinutes)
	}
}

func TestMethodScore(t *testing.T) {
	assert.Equal(t, 1.0, MethodScore(MethodLive))
	assert.Equal(t, 0.8, MethodScore(MethodCacheFresh))
	assert.Equal(t, 0.4, MethodScore(MethodCacheStale))
	assert.Equal(t, 0.4, MethodScore(Method("bogus")))
}

func TestCalculate_Boundaries(t *testing.T) {
	got := Calculate(100, 0, MethodLive)
	assert.InDelta(t, 1.0, got.Score, 1e-9)
	assert.Equal(t, LevelAlta, got.Level)

	got = Calculate(50, 400, MethodCacheStale)
	assert.InDelta(t, 0.36, got.Score, 1e-9)
	assert.Equal(t, LevelBaixa, got.Level)

	// A score landing exactly on 0.8 reads as Media.
	got = Calculate(78, 30, MethodLive)
	assert.InDelta(t, 0.8, got.Score, 1e-9)
	assert.Equal(t, LevelMedia, got.Level)

	// A score of exactly 0.5 reads as Media, not Baixa.
	got = Calculate(0, 0, MethodLive)
	assert.InDelta(t, 0.5, got.Score, 1e-9)
	assert.Equal(t, LevelMedia, got.Level)
}

func TestCalculate_ClampsCoverage(t *testing.T) {
	over := Calculate(150, 0, MethodLive)
	exact := Calculate(100, 0, MethodLive)
	assert.Equal(t, exact, over)

	under := Calculate(-20, 0, MethodLive)
	zero := Calculate(0, 0, MethodLive)
	assert.Equal(t, zero, under)
}

func TestCalculate_MonotonicInCoverage(t *testing.T) {
	prev := -1.0
	for cov := 0.0; cov <= 100; cov += 5 {
		got := Calculate(cov, 30, MethodCacheFresh)
		assert.GreaterOrEqual(t, got.Score, prev, "coverage %v", cov)
		prev = got.Score
	}
}

func TestCalculate_MonotonicInFreshness(t *testing.T) {
	ages := []float64{500, 360, 359, 60, 59, 5, 4, 0}
	prev := -1.0
	for _, age := range ages {
		got := Calculate(60, age, MethodLive)
		assert.GreaterOrEqual(t, got.Score, prev, "age %v", age)
		prev = got.Score
	}
}

func TestDeriveMethod(t *testing.T) {
	tests := []struct {
		responseState string
		cacheStatus   string
		want          Method
	}{
		{"", "", MethodLive},
		{"live", "fresh", MethodLive},
		{"degraded", "stale", MethodLive},
		{"cached", "fresh", MethodCacheFresh},
		{"cached", "stale", MethodCacheStale},
		{"cached", "", MethodCacheStale},
		{"empty_failure", "fresh", MethodCacheStale},
		{"something_new", "", MethodLive},
	}
	for _, tt := range tests {
		got := DeriveMethod(tt.responseState, tt.cacheStatus)
		assert.Equal(t, tt.want, got, "state=%q cache=%q", tt.responseState, tt.cacheStatus)
	}
}
