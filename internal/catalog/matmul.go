package catalog

import (
	"math/rand"
	"time"

	"yqhp/benchgrid/pkg/types"
)

const matmulValueRange = 32767

// runMatMul multiplies two size x size matrices of random 16-bit integers
// with the naive triple loop. The size parameter controls the dimension.
func runMatMul(params map[string]float64) error {
	n := intParam(params, "size", types.TaskMatMul, 425)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	a := randomMatrix(rng, n)
	b := randomMatrix(rng, n)

	out := make([][]int64, n)
	for i := range out {
		out[i] = make([]int64, n)
	}
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			aik := a[i][k]
			for j := 0; j < n; j++ {
				out[i][j] += aik * b[k][j]
			}
		}
	}
	return nil
}

func randomMatrix(rng *rand.Rand, n int) [][]int64 {
	m := make([][]int64, n)
	for i := range m {
		row := make([]int64, n)
		for j := range row {
			row[j] = int64(rng.Intn(2*matmulValueRange+1) - matmulValueRange)
		}
		m[i] = row
	}
	return m
}
