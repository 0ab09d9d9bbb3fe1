package dice

import (
	"crypto/rand"
	"math/big"
)

// Source is the randomness provider for die faces.
//
// Implementations MUST be safe for concurrent use and MUST be uniform over
// [0, n). Fairness matters for game trust; unpredictability is a bonus.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// cryptoSource implements Source using crypto/rand.
//
// Invariant: All values produced are uniformly distributed in [0, n) for any n > 0.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a uniformly distributed random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
// Panics with "dice: crypto/rand failure: <err>" if crypto/rand fails.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// rollFace returns one face of a die with the given number of sides.
//
// Precondition: sides >= 1.
// Postcondition: 1 <= result <= sides.
func rollFace(src Source, sides int) int {
	return src.Intn(sides) + 1
}
