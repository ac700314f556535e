package index

import (
	"fmt"
	"math"
	"strings"
)

// Metric selects the distance function of an index.
type Metric uint8

const (
	// MetricCosine ranks by 1 - cosine similarity.
	MetricCosine Metric = 1
	// MetricL2 ranks by squared Euclidean distance.
	MetricL2 Metric = 2
)

// DefaultMetric is used when no metric is configured.
const DefaultMetric = MetricCosine

// String returns the metric's configuration name.
func (m Metric) String() string {
	switch m {
	case MetricCosine:
		return "cosine"
	case MetricL2:
		return "l2"
	default:
		return fmt.Sprintf("metric(%d)", uint8(m))
	}
}

// Valid reports whether m is a supported metric.
func (m Metric) Valid() bool {
	return m == MetricCosine || m == MetricL2
}

// ParseMetric parses a metric name. An empty name yields DefaultMetric.
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return DefaultMetric, nil
	case "cosine", "cos":
		return MetricCosine, nil
	case "l2", "euclidean":
		return MetricL2, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
}

// NormalizeVector normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v []float32) []float32 {
	result := make([]float32, len(v))
	if len(v) == 0 {
		return result
	}

	var magnitude float64
	for _, val := range v {
		magnitude += float64(val) * float64(val)
	}
	magnitude = math.Sqrt(magnitude)

	// Can't normalize zero vector
	if magnitude == 0 {
		return result
	}

	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}

// squaredL2 returns the squared Euclidean distance between equal-length vectors.
func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// dotProduct calculates the dot product of two equal-length vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
