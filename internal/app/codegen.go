package app

import (
	"math/rand/v2"
	"strings"

	"github.com/dkeye/Circles/internal/domain"
)

const DefaultCodeAttempts = 16

// CodeGenerator draws circle codes uniformly from domain.CodeAlphabet.
type CodeGenerator struct {
	maxAttempts int
	intn        func(n int) int
}

func NewCodeGenerator(maxAttempts int) *CodeGenerator {
	return NewCodeGeneratorWithSource(maxAttempts, rand.IntN)
}

// NewCodeGeneratorWithSource uses intn as the random source; intn(n) must return a value in [0,n).
func NewCodeGeneratorWithSource(maxAttempts int, intn func(n int) int) *CodeGenerator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultCodeAttempts
	}
	return &CodeGenerator{maxAttempts: maxAttempts, intn: intn}
}

// Generate returns a code for which taken reports false, or ErrCodeSpaceExhausted
// once the retry budget is spent.
func (g *CodeGenerator) Generate(taken func(domain.CircleCode) bool) (domain.CircleCode, error) {
	for range g.maxAttempts {
		code := g.next()
		if !taken(code) {
			return code, nil
		}
	}
	return "", domain.ErrCodeSpaceExhausted
}

func (g *CodeGenerator) next() domain.CircleCode {
	var b strings.Builder
	b.Grow(domain.CodeLength)
	for range domain.CodeLength {
		b.WriteByte(domain.CodeAlphabet[g.intn(len(domain.CodeAlphabet))])
	}
	return domain.CircleCode(b.String())
}
