package eventlog

import (
	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/duke-git/lancet/v2/mathutil"

	"yqhp/benchgrid/pkg/types"
)

// Duration histogram bounds: 1µs to 1h at three significant figures covers
// every benchmark body from the millisecond sorts to multi-minute matmuls.
const (
	histMinMicros = 1
	histMaxMicros = int64(3600) * 1e6
	histSigFigs   = 3
)

// Stats computes the on-demand aggregation over a consistent copy of the
// event log and the instance table: event counts by kind, per-node and
// per-task-type completion, and duration statistics over completed
// instances only.
func (s *Store) Stats() types.LoggerStats {
	events, instances, orphans := s.copyState()

	stats := types.LoggerStats{
		TotalEvents:      len(events),
		TotalTasks:       len(instances),
		EventCounts:      make(map[types.EventKind]int),
		OrphanedFinishes: orphans,
		ByType:           make(map[string]types.TaskTypeStats),
		ByNode:           make(map[string]types.NodeStats),
	}

	for _, ev := range events {
		stats.EventCounts[ev.Kind]++
	}

	typeDurations := make(map[string][]float64)
	nodeDurations := make(map[string][]float64)
	var completed []float64

	for _, inst := range instances {
		byType := stats.ByType[inst.TaskName]
		byType.TaskName = inst.TaskName
		byType.Total++

		byNode := stats.ByNode[inst.Node]
		byNode.Node = inst.Node
		byNode.Total++

		if inst.Completed() {
			byType.Completed++
			byNode.Completed++
			typeDurations[inst.TaskName] = append(typeDurations[inst.TaskName], *inst.Duration)
			nodeDurations[inst.Node] = append(nodeDurations[inst.Node], *inst.Duration)
			completed = append(completed, *inst.Duration)
		} else {
			byType.Pending++
			byNode.Pending++
		}

		stats.ByType[inst.TaskName] = byType
		stats.ByNode[inst.Node] = byNode
	}

	for name, st := range stats.ByType {
		if ds := typeDurations[name]; len(ds) > 0 {
			st.AvgDuration = mathutil.Average(ds...)
			stats.ByType[name] = st
		}
	}
	for node, st := range stats.ByNode {
		if ds := nodeDurations[node]; len(ds) > 0 {
			st.AvgDuration = mathutil.Average(ds...)
			stats.ByNode[node] = st
		}
	}

	stats.Durations = durationStats(completed)
	return stats
}

// durationStats summarizes completed-instance durations. Mean, min and max
// are exact; the percentiles come from an HDR histogram over microsecond
// values, so they carry its ~0.1% quantization.
func durationStats(durations []float64) types.DurationStats {
	if len(durations) == 0 {
		return types.DurationStats{}
	}

	hist := hdrhistogram.New(histMinMicros, histMaxMicros, histSigFigs)
	for _, d := range durations {
		micros := int64(d * 1e6)
		if micros < histMinMicros {
			micros = histMinMicros
		}
		if micros > histMaxMicros {
			micros = histMaxMicros
		}
		_ = hist.RecordValue(micros)
	}

	return types.DurationStats{
		Count: len(durations),
		Mean:  mathutil.Average(durations...),
		Min:   mathutil.Min(durations...),
		Max:   mathutil.Max(durations...),
		P50:   float64(hist.ValueAtQuantile(50)) / 1e6,
		P90:   float64(hist.ValueAtQuantile(90)) / 1e6,
		P99:   float64(hist.ValueAtQuantile(99)) / 1e6,
	}
}
