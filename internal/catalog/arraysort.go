package catalog

import (
	"math/rand"
	"sort"
	"time"

	"yqhp/benchgrid/pkg/types"
)

// runArraySort fills a slice with array_size random integers and sorts it.
func runArraySort(params map[string]float64) error {
	size := intParam(params, "array_size", types.TaskArray, 5000000)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	data := make([]int, size)
	for i := range data {
		data[i] = rng.Int()
	}
	sort.Ints(data)
	return nil
}
