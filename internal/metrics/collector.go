package metrics

import (
	"sort"
	"sync"

	"github.com/lumen-phi/photonic-core/pkg/models"
)

// Collector accumulates step-indexed series while a run executes. Series are
// keyed by metric name plus an optional label set, so per-ring and per-unit
// streams of the same metric stay separate.
type Collector struct {
	mu sync.RWMutex

	// Series data: metric name -> label key -> []MetricPoint
	series map[string]map[string][]*models.MetricPoint

	// Aggregation cache: metric name -> label key -> Aggregation
	aggregations map[string]map[string]*models.Aggregation
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{
		series:       make(map[string]map[string][]*models.MetricPoint),
		aggregations: make(map[string]map[string]*models.Aggregation),
	}
}

// Record appends a point at the given step. Steps are expected to arrive in
// order within one series; the collector does not sort.
func (c *Collector) Record(name string, value float64, step int64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := labelKey(labels)
	if c.series[name] == nil {
		c.series[name] = make(map[string][]*models.MetricPoint)
	}

	point := &models.MetricPoint{
		Step:   step,
		Name:   name,
		Value:  value,
		Labels: copyLabels(labels),
	}
	c.series[name][key] = append(c.series[name][key], point)

	// Any cached aggregation for this series is stale now.
	if c.aggregations[name] != nil {
		delete(c.aggregations[name], key)
	}
}

// Series returns a copy of all points for a metric/label combination
func (c *Collector) Series(name string, labels map[string]string) []*models.MetricPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyPoints(c.pointsLocked(name, labelKey(labels)))
}

// Since returns a copy of the points of a series whose step is at or past
// the given step. Streaming consumers use it to pick up where they left off.
func (c *Collector) Since(name string, labels map[string]string, step int64) []*models.MetricPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()

	points := c.pointsLocked(name, labelKey(labels))
	idx := sort.Search(len(points), func(i int) bool { return points[i].Step >= step })
	return copyPoints(points[idx:])
}

// Aggregation computes aggregated statistics for a series, bypassing the
// cache. Returns nil when the series is empty.
func (c *Collector) Aggregation(name string, labels map[string]string) *models.Aggregation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	points := c.pointsLocked(name, labelKey(labels))
	if len(points) == 0 {
		return nil
	}
	return calculateAggregation(points)
}

// CachedAggregation returns the cached aggregation for a series, computing
// and caching it on first use. Record invalidates the cache entry.
func (c *Collector) CachedAggregation(name string, labels map[string]string) *models.Aggregation {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := labelKey(labels)
	if c.aggregations[name] == nil {
		c.aggregations[name] = make(map[string]*models.Aggregation)
	}
	if agg, ok := c.aggregations[name][key]; ok {
		return agg
	}

	points := c.pointsLocked(name, key)
	if len(points) == 0 {
		return nil
	}
	agg := calculateAggregation(points)
	c.aggregations[name][key] = agg
	return agg
}

// ComputeAllAggregations fills the cache for every recorded series
func (c *Collector) ComputeAllAggregations() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, labelMap := range c.series {
		if c.aggregations[name] == nil {
			c.aggregations[name] = make(map[string]*models.Aggregation)
		}
		for key, points := range labelMap {
			if len(points) > 0 {
				c.aggregations[name][key] = calculateAggregation(points)
			}
		}
	}
}

// Names returns all metric names that have been recorded
func (c *Collector) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.series))
	for name := range c.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LabelSets returns every label combination recorded for a metric
func (c *Collector) LabelSets(name string) []map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.series[name] == nil {
		return nil
	}
	sets := make([]map[string]string, 0, len(c.series[name]))
	for _, points := range c.series[name] {
		if len(points) > 0 {
			sets = append(sets, copyLabels(points[0].Labels))
		}
	}
	return sets
}

// Len returns the number of points in a series
func (c *Collector) Len(name string, labels map[string]string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pointsLocked(name, labelKey(labels)))
}

// Clear drops all series and cached aggregations
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.series = make(map[string]map[string][]*models.MetricPoint)
	c.aggregations = make(map[string]map[string]*models.Aggregation)
}

// pointsLocked returns points without locking (caller must hold the lock)
func (c *Collector) pointsLocked(name, key string) []*models.MetricPoint {
	if c.series[name] == nil {
		return nil
	}
	return c.series[name][key]
}

func copyPoints(points []*models.MetricPoint) []*models.MetricPoint {
	if points == nil {
		return nil
	}
	out := make([]*models.MetricPoint, len(points))
	for i, p := range points {
		out[i] = &models.MetricPoint{
			Step:   p.Step,
			Name:   p.Name,
			Value:  p.Value,
			Labels: copyLabels(p.Labels),
		}
	}
	return out
}

// labelKey creates a stable map key from a label set
func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	key := ""
	for _, k := range keys {
		key += k + "=" + labels[k] + ","
	}
	return key
}

// copyLabels creates a copy of the labels map
func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	copied := make(map[string]string, len(labels))
	for k, v := range labels {
		copied[k] = v
	}
	return copied
}

// calculateAggregation reduces points to aggregated statistics
func calculateAggregation(points []*models.MetricPoint) *models.Aggregation {
	if len(points) == 0 {
		return nil
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	sort.Float64s(values)

	count := int64(len(values))
	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return &models.Aggregation{
		Count: count,
		Sum:   sum,
		Min:   values[0],
		Max:   values[len(values)-1],
		Mean:  sum / float64(count),
		P50:   calculatePercentile(values, 0.50),
		P95:   calculatePercentile(values, 0.95),
		P99:   calculatePercentile(values, 0.99),
	}
}

// calculatePercentile interpolates a percentile from a sorted slice
func calculatePercentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return 0.0
	}
	if len(sortedValues) == 1 {
		return sortedValues[0]
	}

	index := p * float64(len(sortedValues)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sortedValues) {
		return sortedValues[len(sortedValues)-1]
	}

	weight := index - float64(lower)
	return sortedValues[lower]*(1-weight) + sortedValues[upper]*weight
}
