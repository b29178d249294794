// Package scorer turns execution evidence and fabrication indicators into
// an authenticity verdict.
//
// The rule set is an additive heuristic, deliberately simple and fully
// deterministic: the same evidence and indicators always produce the same
// score and level, with no hidden timers or state. The weights are
// tunable; DefaultWeights is the tested baseline.
package scorer

import (
	"encoding/json"
	"fmt"
	"time"

	"toolwitness/internal/evidence"
)

// Level is the discretized authenticity verdict, ordered from least to
// most trustworthy.
type Level int

const (
	Fabricated Level = iota
	Suspicious
	LikelyAuthentic
	Authentic
)

// String returns the wire name of the level.
func (l Level) String() string {
	switch l {
	case Fabricated:
		return "fabricated"
	case Suspicious:
		return "suspicious"
	case LikelyAuthentic:
		return "likely_authentic"
	case Authentic:
		return "authentic"
	default:
		return "unknown"
	}
}

// ParseLevel parses a wire name back into a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "fabricated":
		return Fabricated, nil
	case "suspicious":
		return Suspicious, nil
	case "likely_authentic":
		return LikelyAuthentic, nil
	case "authentic":
		return Authentic, nil
	default:
		return Fabricated, fmt.Errorf("unknown authenticity level: %q", s)
	}
}

// MarshalJSON encodes the level as its wire name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a wire name into the level.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Weights holds the scoring coefficients. All terms are applied to a
// neutral baseline and the result is clamped to [0, 1].
type Weights struct {
	// Baseline is the starting score before any evidence is applied.
	Baseline float64 `json:"baseline"`

	// SubprocessBonus is added when at least one subprocess was spawned.
	SubprocessBonus float64 `json:"subprocess_bonus"`

	// FilesystemBonus is added when any filesystem change was observed.
	FilesystemBonus float64 `json:"filesystem_bonus"`

	// IndicatorPenalty is subtracted per matched fabrication indicator.
	IndicatorPenalty float64 `json:"indicator_penalty"`

	// MaxIndicatorPenalty caps the cumulative indicator subtraction.
	MaxIndicatorPenalty float64 `json:"max_indicator_penalty"`

	// TimingBonusMax caps the execution-time term.
	TimingBonusMax float64 `json:"timing_bonus_max"`

	// MinRealisticTime is the elapsed time below which a result is
	// considered instantaneous and earns no timing bonus.
	MinRealisticTime time.Duration `json:"min_realistic_time"`
}

// DefaultWeights returns the tested baseline coefficients.
func DefaultWeights() Weights {
	return Weights{
		Baseline:            0.5,
		SubprocessBonus:     0.25,
		FilesystemBonus:     0.25,
		IndicatorPenalty:    0.15,
		MaxIndicatorPenalty: 0.6,
		TimingBonusMax:      0.1,
		MinRealisticTime:    5 * time.Millisecond,
	}
}

// Level thresholds for discretizing the confidence score.
const (
	authenticThreshold       = 0.75
	likelyAuthenticThreshold = 0.5
	suspiciousThreshold      = 0.25
)

// Score fuses evidence and fabrication indicators into a confidence score
// in [0, 1] and a discrete authenticity level.
//
// Hard override: completion-claim language with zero physical evidence is
// the canonical fabrication signature and forces a Fabricated level
// regardless of the computed score.
func Score(w Weights, ev evidence.Evidence, indicators []string) (float64, Level) {
	score := w.Baseline

	if ev.SubprocessSpawned > 0 {
		score += w.SubprocessBonus
	}
	if len(ev.FilesystemChanges) > 0 {
		score += w.FilesystemBonus
	}

	penalty := w.IndicatorPenalty * float64(len(indicators))
	if penalty > w.MaxIndicatorPenalty {
		penalty = w.MaxIndicatorPenalty
	}
	score -= penalty

	// Instantaneous responses are more likely templated text; give a small
	// bonus that grows with elapsed time up to the cap.
	if ev.ExecutionTime > w.MinRealisticTime {
		bonus := ev.Milliseconds() / 1000.0
		if bonus > w.TimingBonusMax {
			bonus = w.TimingBonusMax
		}
		score += bonus
	}

	score = clamp01(score)

	if len(indicators) > 0 && !ev.HasPhysicalEvidence() {
		return score, Fabricated
	}
	return score, levelFor(score)
}

func levelFor(score float64) Level {
	switch {
	case score >= authenticThreshold:
		return Authentic
	case score >= likelyAuthenticThreshold:
		return LikelyAuthentic
	case score >= suspiciousThreshold:
		return Suspicious
	default:
		return Fabricated
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
