package dataset

import (
	"github.com/gocarina/gocsv"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Source represents a place where the tables of the simulated samples are stored.
type Source interface {
	// Load returns the complete table of the sample with the given name.
	Load(sample string) (Table, error)
}

// CSVSource loads samples from a directory holding one <sample>.csv file per sample. The first line of each file
// names the columns. Parsed tables are kept in a least-recently-used cache.
type CSVSource struct {
	dir   string
	cache *lru.Cache
}

// CSVCacheSize sets how many parsed samples are kept in memory.
func CSVCacheSize(size int) func(*CSVSource) error {
	return func(s *CSVSource) error {
		c, err := lru.New(size)
		if err != nil {
			return err
		}
		s.cache = c
		return nil
	}
}

// NewCSVSource creates a source for the CSV files in dir.
func NewCSVSource(dir string, options ...func(*CSVSource) error) (*CSVSource, error) {
	s := &CSVSource{dir: dir}
	for _, option := range append([]func(*CSVSource) error{CSVCacheSize(16)}, options...) {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Load reads <dir>/<sample>.csv.
func (s *CSVSource) Load(sample string) (Table, error) {
	if t, ok := s.cache.Get(sample); ok {
		return t.(Table), nil
	}

	f, err := os.Open(filepath.Join(s.dir, sample+".csv"))
	if err != nil {
		return Table{}, errors.Wrapf(err, "could not open sample %s", sample)
	}
	defer f.Close()

	records, err := gocsv.CSVToMaps(f)
	if err != nil {
		return Table{}, errors.Wrapf(err, "could not parse sample %s", sample)
	}

	columns := make(map[string][]float64)
	for i, record := range records {
		for name, value := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return Table{}, errors.Errorf("sample %s, row %d, column %s: %q is not a number", sample, i+1, name, value)
			}
			columns[name] = append(columns[name], v)
		}
	}

	t, err := NewTable(columns)
	if err != nil {
		return Table{}, errors.Wrapf(err, "sample %s", sample)
	}
	s.cache.Add(sample, t)
	return t, nil
}

// MapSource is an in-memory source.
type MapSource map[string]Table

// Load returns the table stored for sample.
func (m MapSource) Load(sample string) (Table, error) {
	t, ok := m[sample]
	if !ok {
		return Table{}, errors.Errorf("unknown sample %s", sample)
	}
	return t, nil
}
