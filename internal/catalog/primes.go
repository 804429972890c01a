package catalog

import (
	"yqhp/benchgrid/pkg/types"
)

// runPrimes counts the primes up to max_n with a sieve of Eratosthenes.
func runPrimes(params map[string]float64) error {
	maxN := intParam(params, "max_n", types.TaskPrimes, 2400000)

	sieve := make([]bool, maxN+1)
	count := 0
	for i := 2; i <= maxN; i++ {
		if sieve[i] {
			continue
		}
		count++
		for j := i * 2; j <= maxN; j += i {
			sieve[j] = true
		}
	}
	_ = count
	return nil
}
