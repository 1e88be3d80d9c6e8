package presentation

import (
	"strconv"
	"sync"

	"go-skin-inspector/internal/view"
	"go-skin-inspector/pkg/models"
)

// Change classes. A rising score is worse for the skin.
const (
	ChangeWorse   = "negative"
	ChangeBetter  = "positive"
	ChangeNeutral = "neutral"
)

// MetricsPresenter writes metric values into display slots and replaces the chart
type MetricsPresenter struct {
	store *view.Store

	mu       sync.Mutex
	previous models.MetricsRecord
}

func NewMetricsPresenter(store *view.Store) *MetricsPresenter {
	return &MetricsPresenter{store: store}
}

// FormatValue renders a metric the way the service sent it: 42 stays "42", 7.5 stays "7.5"
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// PercentageChange returns the relative change from old to new, or 0 when old is 0
func PercentageChange(old, new float64) float64 {
	if old == 0 {
		return 0
	}
	return (new - old) / old * 100
}

func ChangeClass(percent float64) string {
	switch {
	case percent > 0:
		return ChangeWorse
	case percent < 0:
		return ChangeBetter
	default:
		return ChangeNeutral
	}
}

// ShowMetrics updates every known slot present in rec and draws a new chart.
// Unknown keys are skipped; slots absent from rec keep their previous text.
func (p *MetricsPresenter) ShowMetrics(rec models.MetricsRecord) {
	p.mu.Lock()
	previous := p.previous
	p.previous = make(models.MetricsRecord, len(rec))
	for k, v := range rec {
		p.previous[k] = v
	}
	p.mu.Unlock()

	slots := make(map[string]string, len(models.MetricNames))
	changes := make(map[string]view.Change, len(models.MetricNames))
	for name, value := range rec {
		if !models.IsKnownMetric(name) {
			continue
		}
		slots[name] = FormatValue(value)
		if old, ok := previous.Value(name); ok {
			pct := PercentageChange(old, value)
			changes[name] = view.Change{Percent: pct, Class: ChangeClass(pct)}
		}
	}

	labels := make([]string, len(models.MetricLabels))
	copy(labels, models.MetricLabels[:])
	values := make([]float64, len(models.MetricNames))
	for i, name := range models.MetricNames {
		// missing metrics plot as 0
		values[i], _ = rec.Value(name)
	}

	p.store.Update(func(m *view.Model) {
		if m.Slots == nil {
			m.Slots = map[string]string{}
		}
		for name, text := range slots {
			m.Slots[name] = text
		}
		m.Changes = changes

		revision := 1
		if m.Chart != nil {
			revision = m.Chart.Revision + 1
		}
		m.Chart = &view.Chart{Revision: revision, Labels: labels, Values: values}
	})
}
