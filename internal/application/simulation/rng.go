package simulation

import (
	"math/rand/v2"
	"time"

	"github.com/alejandrodnm/agrisim/internal/domain"
)

// stage salts keep the Monte Carlo and path streams of a scenario independent.
type stage uint64

const (
	stageMonteCarlo stage = 0x6d63
	stageStochastic stage = 0x7374
)

// newRand returns the generator for one scenario of one stage. The same
// (seed, index, stage) always yields the same stream.
func newRand(seed uint64, index int, s stage) *rand.Rand {
	return rand.New(rand.NewPCG(splitmix(seed^uint64(s)), splitmix(uint64(index)+uint64(s)<<32)))
}

// splitmix64 finalizer; spreads nearby seeds across the state space.
func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// ResolveSeed returns the request seed, or a clock-derived one when absent.
func ResolveSeed(req domain.OptimizationRequest) uint64 {
	if req.Seed != nil {
		return *req.Seed
	}
	return uint64(time.Now().UnixNano())
}
