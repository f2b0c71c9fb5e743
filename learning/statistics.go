package learning

import (
	"encoding/json"
	"fmt"
	"github.com/hscells/adversarial/store"
	"github.com/pkg/errors"
	"math"
	"path/filepath"
	"sort"
)

// ErrInconsistentRecord is returned when a record does not have exactly the metrics of the records before it.
var ErrInconsistentRecord = errors.New("record does not match the metrics already recorded")

// ErrNonFiniteMetric is returned when a record holds a NaN or infinite value, which cannot be persisted.
var ErrNonFiniteMetric = errors.New("record holds a non-finite metric")

// Statistics is an append-only time series of named training metrics. The names of the first record fix the
// metrics of the series; every following record must provide exactly the same names. All series therefore always
// have the same length, one entry per record.
type Statistics struct {
	series map[string][]float64
	n      int
}

// NewStatistics creates an empty set of series.
func NewStatistics() *Statistics {
	return &Statistics{series: make(map[string][]float64)}
}

// Record appends one value to the series of each metric. Every value must be finite. A rejected record leaves the
// statistics unchanged.
func (s *Statistics) Record(metrics map[string]float64) error {
	if len(metrics) == 0 {
		return errors.Wrap(ErrInconsistentRecord, "empty record")
	}
	for name, value := range metrics {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return errors.Wrapf(ErrNonFiniteMetric, "%s is %v", name, value)
		}
	}
	if s.n > 0 {
		if len(metrics) != len(s.series) {
			return errors.Wrapf(ErrInconsistentRecord, "got %d metrics, expected %d", len(metrics), len(s.series))
		}
		for name := range metrics {
			if _, ok := s.series[name]; !ok {
				return errors.Wrapf(ErrInconsistentRecord, "unexpected metric %s", name)
			}
		}
	}
	for name, value := range metrics {
		s.series[name] = append(s.series[name], value)
	}
	s.n++
	return nil
}

// Len is the number of records.
func (s *Statistics) Len() int {
	return s.n
}

// Names returns the recorded metric names in sorted order.
func (s *Statistics) Names() []string {
	names := make([]string, 0, len(s.series))
	for name := range s.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Series returns a copy of the values recorded for name.
func (s *Statistics) Series(name string) []float64 {
	return append([]float64(nil), s.series[name]...)
}

// Map returns a copy of all series.
func (s *Statistics) Map() map[string][]float64 {
	m := make(map[string][]float64, len(s.series))
	for name := range s.series {
		m[name] = s.Series(name)
	}
	return m
}

// MarshalJSON encodes the series as an object of arrays with sorted keys.
func (s *Statistics) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.series)
}

// UnmarshalJSON decodes series written by MarshalJSON, rejecting series of different lengths.
func (s *Statistics) UnmarshalJSON(b []byte) error {
	var series map[string][]float64
	if err := json.Unmarshal(b, &series); err != nil {
		return err
	}
	n := -1
	for name, values := range series {
		if n >= 0 && len(values) != n {
			return fmt.Errorf("series %s has %d entries, expected %d", name, len(values), n)
		}
		n = len(values)
	}
	if series == nil {
		series = make(map[string][]float64)
	}
	if n < 0 {
		n = 0
	}
	s.series, s.n = series, n
	return nil
}

// Persist writes the series to the file destination, replacing its previous content. Persisting statistics that
// have not changed produces identical bytes.
func (s *Statistics) Persist(destination string) error {
	dir, key := filepath.Split(destination)
	if len(dir) == 0 {
		dir = "."
	}
	return store.WriteJSON(store.NewDirectory(dir), key, s)
}

// ReadStatistics loads series previously written by Persist.
func ReadStatistics(path string) (*Statistics, error) {
	dir, key := filepath.Split(path)
	if len(dir) == 0 {
		dir = "."
	}
	s := NewStatistics()
	if err := store.ReadJSON(store.NewDirectory(dir), key, s); err != nil {
		return nil, err
	}
	return s, nil
}
