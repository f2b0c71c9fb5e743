// Package output provides different formats of output for training statistics and performance dictionaries.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
)

// StatisticsFormatter formats the series of a training run: headers[i] names the series data[i]. All series must
// have the same length.
type StatisticsFormatter func(headers []string, data [][]float64) (string, error)

// JsonStatisticsFormatter outputs the series as an object of arrays.
func JsonStatisticsFormatter(headers []string, data [][]float64) (string, error) {
	if err := checkSeries(headers, data); err != nil {
		return "", err
	}
	m := map[string][]float64{}
	for i, header := range headers {
		m[header] = data[i]
	}

	v, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// CsvStatisticsFormatter outputs one row per record with one column per series.
func CsvStatisticsFormatter(headers []string, data [][]float64) (string, error) {
	if err := checkSeries(headers, data); err != nil {
		return "", err
	}
	b := bytes.NewBufferString("")
	w := csv.NewWriter(b)
	if err := w.Write(headers); err != nil {
		return "", err
	}
	var n int
	if len(data) > 0 {
		n = len(data[0])
	}
	for j := 0; j < n; j++ {
		record := make([]string, len(data))
		for i := range data {
			record[i] = strconv.FormatFloat(data[i][j], 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return b.String(), w.Error()
}

func checkSeries(headers []string, data [][]float64) error {
	if len(headers) != len(data) {
		return fmt.Errorf("%d headers for %d series", len(headers), len(data))
	}
	for i := range data {
		if len(data[i]) != len(data[0]) {
			return fmt.Errorf("series %s has %d entries, expected %d", headers[i], len(data[i]), len(data[0]))
		}
	}
	return nil
}
