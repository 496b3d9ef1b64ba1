package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the header date format of the time series files (e.g. 1/22/20).
const DateLayout = "1/2/06"

var (
	countryColumns = []string{"Country/Region", "Country_Region"}
	stateColumns   = []string{"Province/State", "Province_State"}
)

// ErrNoDateColumns is returned when no header parses as a date.
var ErrNoDateColumns = errors.New("no date columns in header")

// ParseTimeSeries reads a wide time series CSV: one row per region, one
// column per day starting at the first header that parses as a date.
// Rows are normalized with n and rows sharing a key are merged.
func ParseTimeSeries(r io.Reader, n Normalizer) (*Dataset, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	countryCol := findColumn(header, countryColumns)
	if countryCol < 0 {
		return nil, fmt.Errorf("missing country column (one of %s)", strings.Join(countryColumns, ", "))
	}
	stateCol := findColumn(header, stateColumns)

	dateStart := -1
	var dates []time.Time
	for i, h := range header {
		d, err := time.Parse(DateLayout, strings.TrimSpace(h))
		if err != nil {
			if dateStart >= 0 {
				return nil, fmt.Errorf("column %d (%q) interrupts the date columns", i, h)
			}
			continue
		}
		if dateStart < 0 {
			dateStart = i
		}
		dates = append(dates, d)
	}
	if dateStart < 0 {
		return nil, ErrNoDateColumns
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}

		state := ""
		if stateCol >= 0 {
			state = strings.TrimSpace(rec[stateCol])
		}
		key, ok := n.Normalize(strings.TrimSpace(rec[countryCol]), state)
		if !ok {
			continue
		}

		values := make(Series, len(dates))
		for i := range values {
			v, err := parseCount(rec[dateStart+i])
			if err != nil {
				return nil, fmt.Errorf("line %d, column %q: %w", line, header[dateStart+i], err)
			}
			values[i] = v
		}
		rows = append(rows, Row{Key: key, Values: values})
	}

	return &Dataset{Dates: dates, Rows: Merge(rows)}, nil
}

func findColumn(header []string, names []string) int {
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

// parseCount parses one cell. Empty cells count as zero.
func parseCount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
