package scoring

import (
	"github.com/bancbannas/bulls-and-cows-server/internal/model"
)

// CodeLength is the required length of secrets and guesses
const CodeLength = 4

// Service computes match feedback for guesses. It holds no state.
type Service struct{}

// New creates a new scoring Service
func New() *Service {
	return &Service{}
}

// ValidateCode checks that a code is exactly CodeLength symbols with no
// repeats. Inputs failing this shape are rejected upstream before scoring.
func (s *Service) ValidateCode(code string) error {
	runes := []rune(code)
	if len(runes) != CodeLength {
		return model.ErrMalformedPayload
	}
	seen := make(map[rune]bool, CodeLength)
	for _, r := range runes {
		if seen[r] {
			return model.ErrMalformedPayload
		}
		seen[r] = true
	}
	return nil
}

// Evaluate computes bulls and cows for a guess against a secret.
//
// Bulls count positions where the symbols are equal. Cows count symbols
// present in both strings at different positions with multiset semantics:
// for each distinct symbol, min(occurrences in guess, occurrences in
// secret), bull positions excluded. A per-position contains check would
// miscount when a symbol repeats, so the counting stays correct even for
// inputs that violate the distinct-symbol precondition.
func (s *Service) Evaluate(guess, secret string) model.GuessResult {
	g := []rune(guess)
	sec := []rune(secret)

	overlap := len(g)
	if len(sec) < overlap {
		overlap = len(sec)
	}

	var result model.GuessResult
	guessLeft := make(map[rune]int)
	secretLeft := make(map[rune]int)

	for i := 0; i < overlap; i++ {
		if g[i] == sec[i] {
			result.Bulls++
			continue
		}
		guessLeft[g[i]]++
		secretLeft[sec[i]]++
	}
	for _, r := range g[overlap:] {
		guessLeft[r]++
	}
	for _, r := range sec[overlap:] {
		secretLeft[r]++
	}

	for sym, n := range guessLeft {
		if m := secretLeft[sym]; m < n {
			result.Cows += m
		} else {
			result.Cows += n
		}
	}

	return result
}

// Interface for dependency injection
type ServiceInterface interface {
	ValidateCode(code string) error
	Evaluate(guess, secret string) model.GuessResult
}

var _ ServiceInterface = (*Service)(nil)
