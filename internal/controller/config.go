// Package controller implements the cyclic cognitive controller
// described in spec.md §4.D: per-session state, position derivation,
// checkpoint detection, beam-trace construction, scorer-gated
// confidence attenuation, and checkpoint-triggered context compression.
package controller

// Config holds the tunables spec.md §4.D names, with the reference
// defaults applied by DefaultConfig.
type Config struct {
	CompressedContextMaxChars int     // default 4000
	BaseConfidence            float64 // default 0.78
	CheckpointConfidenceBonus float64 // default 0.08
	RiskAttenuationFactor     float64 // default 0.45
	RiskIntervention          float64 // +0.25 capped on constraint failure
	DegradedRisk              float64 // fallback risk on scorer error, default 0.2
	DegradedSignal            float64 // fallback signal on scorer error, default 0.7
}

// DefaultConfig returns the reference-implementation defaults.
func DefaultConfig() Config {
	return Config{
		CompressedContextMaxChars: 4000,
		BaseConfidence:            0.78,
		CheckpointConfidenceBonus: 0.08,
		RiskAttenuationFactor:     0.45,
		RiskIntervention:          0.25,
		DegradedRisk:              0.2,
		DegradedSignal:            0.7,
	}
}
