package application

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
)

// Character classes offered by the generator.
const (
	charsUppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	charsLowercase = "abcdefghijklmnopqrstuvwxyz"
	charsDigits    = "0123456789"
	charsSymbols   = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

// commonPatterns are substrings penalized by Score, matched case-insensitively.
var commonPatterns = []string{"123", "abc", "qwe", "password", "admin"}

// Strength feedback messages, in the order Score emits them.
const (
	feedbackTooShort  = "Password should be at least 8 characters long"
	feedbackLowercase = "Include lowercase letters"
	feedbackUppercase = "Include uppercase letters"
	feedbackDigits    = "Include numbers"
	feedbackSymbols   = "Include special characters"
	feedbackRepeats   = "Avoid repeated characters"
	feedbackPatterns  = "Avoid common patterns"
)

// RandomSource yields uniformly distributed integers in [0, n).
// *math/rand/v2.Rand satisfies it, which lets tests seed the generator.
type RandomSource interface {
	IntN(n int) int
}

// cryptoSource draws from crypto/rand.
type cryptoSource struct{}

func (cryptoSource) IntN(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic("password generator: reading crypto/rand: " + err.Error())
	}
	return int(v.Int64())
}

// PasswordPolicy generates passwords and scores their strength. It holds no
// state besides its random source.
type PasswordPolicy struct {
	rnd RandomSource
}

// NewPasswordPolicy creates a PasswordPolicy. A nil rnd selects the
// cryptographically secure default.
func NewPasswordPolicy(rnd RandomSource) *PasswordPolicy {
	if rnd == nil {
		rnd = cryptoSource{}
	}
	return &PasswordPolicy{rnd: rnd}
}

// Generate returns a password of exactly cfg.Length characters drawn
// independently and uniformly, with replacement, from the union of the
// selected character classes. Repeats are possible.
func (p *PasswordPolicy) Generate(cfg model.GenerationConfig) (string, error) {
	if cfg.Length < model.MinPasswordLength || cfg.Length > model.MaxPasswordLength {
		return "", &model.InvalidConfigError{Reason: "length must be between 8 and 64"}
	}

	charset := Charset(cfg)
	if charset == "" {
		return "", &model.InvalidConfigError{Reason: "select at least one character type"}
	}

	var b strings.Builder
	b.Grow(cfg.Length)
	for range cfg.Length {
		b.WriteByte(charset[p.rnd.IntN(len(charset))])
	}
	return b.String(), nil
}

// Charset returns the union of the character classes selected by cfg.
func Charset(cfg model.GenerationConfig) string {
	var b strings.Builder
	if cfg.Uppercase {
		b.WriteString(charsUppercase)
	}
	if cfg.Lowercase {
		b.WriteString(charsLowercase)
	}
	if cfg.Digits {
		b.WriteString(charsDigits)
	}
	if cfg.Symbols {
		b.WriteString(charsSymbols)
	}
	return b.String()
}

// Score rates a password with an additive heuristic. It is advisory only and
// is not an entropy estimate. Every rule is applied to the same input.
func (p *PasswordPolicy) Score(password string) model.StrengthResult {
	return ScorePassword(password)
}

// ScorePassword is the pure form of PasswordPolicy.Score.
func ScorePassword(password string) model.StrengthResult {
	if password == "" {
		return model.StrengthResult{Score: 0, Label: model.StrengthNone, Feedback: []string{}}
	}

	score := 0
	feedback := []string{}

	length := utf8.RuneCountInString(password)
	if length >= 8 {
		score++
	} else {
		feedback = append(feedback, feedbackTooShort)
	}
	if length >= 12 {
		score++
	}
	if length >= 16 {
		score++
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	if hasLower {
		score++
	} else {
		feedback = append(feedback, feedbackLowercase)
	}
	if hasUpper {
		score++
	} else {
		feedback = append(feedback, feedbackUppercase)
	}
	if hasDigit {
		score++
	} else {
		feedback = append(feedback, feedbackDigits)
	}
	if hasSymbol {
		score++
	} else {
		feedback = append(feedback, feedbackSymbols)
	}

	if runs := repeatedRuns(password); runs > 0 {
		score -= runs
		feedback = append(feedback, feedbackRepeats)
	}

	if containsCommonPattern(password) {
		score -= 2
		feedback = append(feedback, feedbackPatterns)
	}

	score = max(0, score)

	return model.StrengthResult{
		Score:    score,
		Label:    strengthLabel(score),
		Feedback: feedback,
	}
}

// repeatedRuns counts maximal runs of three or more identical consecutive
// characters. "aaaa1111" has two.
func repeatedRuns(s string) int {
	runs := 0
	var prev rune
	count := 0
	for _, r := range s {
		if count > 0 && r == prev {
			count++
		} else {
			prev = r
			count = 1
		}
		if count == 3 {
			runs++
		}
	}
	return runs
}

func containsCommonPattern(s string) bool {
	lower := strings.ToLower(s)
	for _, pattern := range commonPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// strengthLabel maps a clamped score to its label, evaluated top-down.
func strengthLabel(score int) model.StrengthLabel {
	switch {
	case score >= 6:
		return model.StrengthStrong
	case score >= 4:
		return model.StrengthGood
	case score >= 2:
		return model.StrengthFair
	default:
		return model.StrengthWeak
	}
}
