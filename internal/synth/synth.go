// Package synth generates deterministic synthetic telemetry. Every value is
// a pure function of (deviceID, metric), stable across processes and runs,
// which lets the rest of the system treat synthetic data as a legitimate,
// replayable tier rather than noise.
package synth

import (
	"hash/fnv"
	"strconv"
)

// Metric offsets, one per synthetic field. Each field of a generated record
// uses a distinct, stable offset so that repeated calls for the same device
// produce internally consistent telemetry.
const (
	MetricOnline = iota
	MetricUptime
	MetricUtilization
	MetricRegion
	MetricVersion
	MetricLastSeen
	MetricEarningsBase
	MetricEarningsSplit
	MetricEarningsBonus
	MetricCPU
	MetricMemory
	MetricDisk
	MetricBandwidth
	MetricRequests
	MetricPrice
	MetricConfidence
)

// seed hashes deviceID and metric into a stable 64-bit seed. FNV-1a, no
// global state.
func seed(deviceID string, metric int) uint64 {
	h := fnv.New64a()
	h.Write([]byte(deviceID))
	h.Write([]byte{':'})
	h.Write([]byte(strconv.Itoa(metric)))
	return h.Sum64()
}

// Value returns a float64 in [min, max) derived from (deviceID, metric).
// Identical inputs always yield the identical output. If max <= min the
// min bound is returned.
func Value(deviceID string, metric int, min, max float64) float64 {
	if max <= min {
		return min
	}
	// 53 bits keeps the fraction exactly representable in a float64.
	const frac = 1 << 53
	f := float64(seed(deviceID, metric)%frac) / frac
	return min + f*(max-min)
}

// IntValue returns an integer in [min, max) derived from (deviceID, metric).
func IntValue(deviceID string, metric int, min, max int64) int64 {
	if max <= min {
		return min
	}
	return min + int64(seed(deviceID, metric)%uint64(max-min))
}

// Bool returns true with the given probability, deterministically per
// (deviceID, metric).
func Bool(deviceID string, metric int, probability float64) bool {
	return Value(deviceID, metric, 0, 1) < probability
}

// Pick returns one of options, deterministically per (deviceID, metric).
// Returns the empty string for an empty slice.
func Pick(deviceID string, metric int, options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[IntValue(deviceID, metric, 0, int64(len(options)))]
}
