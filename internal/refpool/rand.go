package refpool

import (
	"math"
	"math/rand"
)

// randFloat64 and uniformIndex are isolated behind this file so sampling
// determinism can be swapped to a seeded source in tests without
// touching the distribution math in pool.go.
func randFloat64() float64 { return rand.Float64() }

func uniformIndex(n int) int { return rand.Intn(n) }

func powFloat(base, exp float64) float64 { return math.Pow(base, exp) }
