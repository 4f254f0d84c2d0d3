package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/perpstats/perpstats/fills"
)

// ErrCacheMiss reports a fill cache that is absent or does not span the
// requested window.
var ErrCacheMiss = errors.New("journal: fill cache does not cover window")

var fillHeader = []string{"id", "time", "kind", "side", "price", "quantity", "value", "fee"}

// WriteFills writes normalized fills to a CSV cache file.
func WriteFills(path string, fs []fills.Fill) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(fillHeader); err != nil {
		return err
	}
	for _, fl := range fs {
		err := w.Write([]string{
			fl.ID,
			fl.Time.Format(time.RFC3339Nano),
			string(fl.Kind),
			string(fl.Side),
			f(fl.Price),
			f(fl.Quantity),
			f(fl.Value),
			f(fl.Fee),
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadFills loads a fill cache written by WriteFills. The cache is only
// reused when its first and last fill straddle [start, end]; otherwise
// ErrCacheMiss is returned and the caller should refetch.
func ReadFills(path string, start, end time.Time) ([]fills.Fill, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var fs []fills.Fill
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		fl, err := parseFillRecord(rec)
		if err != nil {
			return nil, err
		}
		fs = append(fs, fl)
	}
	if len(fs) == 0 {
		return nil, ErrCacheMiss
	}
	if fs[0].Time.After(start) || fs[len(fs)-1].Time.Before(end) {
		return nil, ErrCacheMiss
	}
	return fs, nil
}

func parseFillRecord(rec []string) (fills.Fill, error) {
	if len(rec) != len(fillHeader) {
		return fills.Fill{}, fmt.Errorf("journal: fill record has %d fields, want %d", len(rec), len(fillHeader))
	}
	ts, err := time.Parse(time.RFC3339Nano, rec[1])
	if err != nil {
		return fills.Fill{}, fmt.Errorf("journal: bad fill time %q: %w", rec[1], err)
	}
	nums := make([]float64, 4)
	for i, s := range rec[4:8] {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fills.Fill{}, fmt.Errorf("journal: bad fill number %q: %w", s, err)
		}
		nums[i] = v
	}
	return fills.Fill{
		ID:       rec[0],
		Time:     ts,
		Kind:     fills.Kind(rec[2]),
		Side:     fills.Side(rec[3]),
		Price:    nums[0],
		Quantity: nums[1],
		Value:    nums[2],
		Fee:      nums[3],
	}, nil
}
