package flowid

import (
	"fmt"
	"math/rand/v2"
	"regexp"
)

const (
	alphabet        = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ-+"
	alphabetBitMask = 63

	// MaxLength of a flow id accepted by the standard generator.
	MaxLength = 64

	// MinLength of a flow id accepted by the standard generator.
	MinLength = 8

	// DefaultLength of generated flow ids.
	DefaultLength = 16
)

var (
	ErrInvalidLen     = fmt.Errorf("invalid length, must be between %d and %d", MinLength, MaxLength)
	standardFlowIDRgx = regexp.MustCompile(`^[0-9a-zA-Z+-]+$`)
)

type standardGenerator struct {
	length int
}

// NewStandardGenerator creates a flow id generator producing ids of length
// l over a 64 element alphabet. A single random 64 bit value is mapped to
// up to 10 chunks of 6 bits each, indexing the alphabet. It is safe for
// concurrent use.
func NewStandardGenerator(l int) (Generator, error) {
	if l < MinLength || l > MaxLength {
		return nil, ErrInvalidLen
	}

	return &standardGenerator{length: l}, nil
}

func (g *standardGenerator) Generate() (string, error) {
	u := make([]byte, g.length)
	for i := 0; i < g.length; i += 10 {
		b := rand.Int64() // #nosec
		for e := 0; e < 10 && i+e < g.length; e++ {
			c := byte(b>>uint(6*e)) & alphabetBitMask
			u[i+e] = alphabet[c]
		}
	}

	return string(u), nil
}

func (g *standardGenerator) MustGenerate() string {
	id, err := g.Generate()
	if err != nil {
		panic(err)
	}

	return id
}

func (g *standardGenerator) IsValid(id string) bool {
	return len(id) >= MinLength && len(id) <= MaxLength && standardFlowIDRgx.MatchString(id)
}
