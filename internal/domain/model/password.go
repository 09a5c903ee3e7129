package model

// Password length bounds accepted by the generator.
const (
	MinPasswordLength     = 8
	MaxPasswordLength     = 64
	DefaultPasswordLength = 16
)

// GenerationConfig selects the length and character classes of a generated
// password. It is a transient value and never persisted.
type GenerationConfig struct {
	Length    int
	Uppercase bool
	Lowercase bool
	Digits    bool
	Symbols   bool
}

// DefaultGenerationConfig returns a config with every class enabled.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Length:    DefaultPasswordLength,
		Uppercase: true,
		Lowercase: true,
		Digits:    true,
		Symbols:   true,
	}
}

// StrengthLabel is the qualitative strength of a password, in ascending order.
type StrengthLabel string

const (
	StrengthNone   StrengthLabel = "None"
	StrengthWeak   StrengthLabel = "Weak"
	StrengthFair   StrengthLabel = "Fair"
	StrengthGood   StrengthLabel = "Good"
	StrengthStrong StrengthLabel = "Strong"
)

// MaxStrengthScore is the score at which a meter is rendered full.
const MaxStrengthScore = 6

// StrengthResult is the outcome of scoring one password. It is recomputed
// from scratch on every input change.
type StrengthResult struct {
	Score    int // Clamped to >= 0.
	Label    StrengthLabel
	Feedback []string
}

// Percent returns the score as a meter fill percentage, capped at 100.
func (r StrengthResult) Percent() int {
	return min(100, r.Score*100/MaxStrengthScore)
}

// MeetsRecommendations reports whether the password satisfies most of the
// checked requirements.
func (r StrengthResult) MeetsRecommendations() bool {
	return r.Score >= 4
}
