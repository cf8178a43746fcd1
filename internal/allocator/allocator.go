package allocator

import (
	"crypto/rand"
	"math/big"
)

const (
	// MinAccountNumber and MaxAccountNumber bound the half-open range
	// [MinAccountNumber, MaxAccountNumber) account numbers are drawn from.
	MinAccountNumber int64 = 1_000_000_000
	MaxAccountNumber int64 = 1_999_999_999
)

// Allocator hands out candidate account numbers. Candidates are not
// guaranteed to be free; the store rejects collisions at insert time.
type Allocator interface {
	Allocate() int64
}

type RandomAllocator struct{}

func NewRandomAllocator() *RandomAllocator {
	return &RandomAllocator{}
}

// Allocate returns a 10-digit number chosen uniformly at random.
func (RandomAllocator) Allocate() int64 {
	span := big.NewInt(MaxAccountNumber - MinAccountNumber)
	num, err := rand.Int(rand.Reader, span)
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic("allocator: reading random source: " + err.Error())
	}
	return MinAccountNumber + num.Int64()
}

// Func adapts a plain function to Allocator.
type Func func() int64

func (f Func) Allocate() int64 { return f() }
