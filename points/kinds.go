package points

import "fmt"

// Kind classifies a point change.
type Kind string

const (
	// FirstCompletion is the first completion of a challenge; requires a heart.
	FirstCompletion Kind = "first_completion"
	// Practice replays a completed challenge; never gated, restores a heart.
	Practice Kind = "practice"
	// Penalty is a wrong answer; requires and consumes a heart.
	Penalty Kind = "penalty"
	// Game is a signed game score; never gated and leaves hearts alone.
	Game Kind = "game"
)

// DefaultMaxDelta bounds |delta| of a kind that has no configured limit.
const DefaultMaxDelta = 100

// logKindRefill marks heart refills in the point log.
const logKindRefill = "refill_hearts"

// ParseKind parses a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case FirstCompletion, Practice, Penalty, Game:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, s)
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, err := ParseKind(string(k))
	return err == nil
}

// HeartGated reports whether k is refused when the user has no hearts.
func (k Kind) HeartGated() bool {
	return k == FirstCompletion || k == Penalty
}

// accepts reports whether delta fits k: the sign matches and |delta| is at most limit.
func (k Kind) accepts(delta, limit int) bool {
	if delta > limit || delta < -limit {
		return false
	}
	switch k {
	case Penalty:
		return delta <= 0
	case Game:
		return true
	}
	return delta >= 0
}
