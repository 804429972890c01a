package types

// TaskType identifies one of the benchmark task kinds.
type TaskType string

const (
	// TaskMatMul multiplies two random square matrices.
	TaskMatMul TaskType = "matmul"
	// TaskPrimes counts primes up to a bound.
	TaskPrimes TaskType = "primes"
	// TaskArray sorts a large random array.
	TaskArray TaskType = "array"
	// TaskFileIO performs random block reads and writes against a scratch file.
	TaskFileIO TaskType = "fileIO"
)

// AllTaskTypes lists every task type in catalog order.
func AllTaskTypes() []TaskType {
	return []TaskType{TaskMatMul, TaskPrimes, TaskArray, TaskFileIO}
}

// Valid reports whether t names a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case TaskMatMul, TaskPrimes, TaskArray, TaskFileIO:
		return true
	}
	return false
}

// String returns the wire name of the task type.
func (t TaskType) String() string { return string(t) }

// TaskSpec describes one schedulable unit of work. Specs are created when
// the task set is seeded and never mutated afterwards.
type TaskSpec struct {
	Type       TaskType           `json:"type" yaml:"type"`
	Parameters map[string]float64 `json:"parameters" yaml:"parameters"`
}

// NewTaskSpec builds a TaskSpec carrying the stock parameters for its type.
func NewTaskSpec(t TaskType) TaskSpec {
	return TaskSpec{Type: t, Parameters: DefaultParameters(t)}
}

// DefaultParameters returns a fresh copy of the stock parameter bag for a
// task type, or nil for an unknown type.
func DefaultParameters(t TaskType) map[string]float64 {
	switch t {
	case TaskMatMul:
		return map[string]float64{"size": 425}
	case TaskPrimes:
		return map[string]float64{"max_n": 2400000}
	case TaskArray:
		return map[string]float64{"array_size": 5000000}
	case TaskFileIO:
		return map[string]float64{"num_rw": 1000000}
	}
	return nil
}

// PopOrder selects which end of the waiting queue assignments come from.
type PopOrder string

const (
	// PopLIFO pops the most recently queued task first. This mirrors the
	// historical pop-from-tail behavior and is the default.
	PopLIFO PopOrder = "lifo"
	// PopFIFO pops the oldest queued task first.
	PopFIFO PopOrder = "fifo"
)

// Valid reports whether p is a recognized pop order.
func (p PopOrder) Valid() bool { return p == PopLIFO || p == PopFIFO }
