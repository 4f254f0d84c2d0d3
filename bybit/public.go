package bybit

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/perpstats/perpstats/fills"
	"github.com/perpstats/perpstats/pkg/id"
	"github.com/perpstats/perpstats/timefmt"
)

// GetPublicTrades downloads the daily market-trade archives covering
// [from, to) and returns the trades inside that range, oldest first. Days
// with no archive (the venue publishes with a one-day delay) are skipped.
// Rows without a match identifier get a generated, time-sortable one so
// normalization can dedupe overlapping downloads.
func (c *Client) GetPublicTrades(ctx context.Context, symbol string, from, to time.Time) ([]fills.Fill, error) {
	if symbol == "" {
		return nil, fmt.Errorf("bybit: symbol is required")
	}
	if !to.After(from) {
		return nil, fmt.Errorf("bybit: empty trade range")
	}

	var out []fills.Fill
	day := from.UTC().Truncate(24 * time.Hour)
	last := to.UTC().Truncate(24 * time.Hour)
	for !day.After(last) {
		trades, err := c.downloadTradeDay(ctx, symbol, day)
		if err != nil {
			return nil, err
		}
		if trades == nil {
			c.log.Debug().Str("day", timefmt.Date.Format(day)).Msg("no archive for day")
			day = day.Add(24 * time.Hour)
			continue
		}
		out = append(out, trades...)
		day = day.Add(24 * time.Hour)
	}

	out = fills.Normalize(out)

	// Trim to the requested range.
	lo := 0
	for lo < len(out) && out[lo].Time.Before(from) {
		lo++
	}
	hi := len(out)
	for hi > lo && !out[hi-1].Time.Before(to) {
		hi--
	}
	return out[lo:hi], nil
}

// downloadTradeDay fetches one daily csv.gz archive. A 404 means the day is
// not published (yet) and returns nil without error.
func (c *Client) downloadTradeDay(ctx context.Context, symbol string, day time.Time) ([]fills.Fill, error) {
	u := fmt.Sprintf("%s/trading/%s/%s%s.csv.gz", c.publicURL, symbol, symbol, timefmt.Date.Format(day))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bybit: download %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bybit: download %s: status %d", u, resp.StatusCode)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bybit: download %s: %w", u, err)
	}
	defer gz.Close()

	trades, err := parseTradeCSV(gz)
	if err != nil {
		return nil, fmt.Errorf("bybit: download %s: %w", u, err)
	}
	c.log.Debug().Str("day", timefmt.Date.Format(day)).Int("trades", len(trades)).Msg("downloaded archive")
	return trades, nil
}

// parseTradeCSV decodes a public trade archive. Columns are located by
// header name; archives have grown columns over the years.
func parseTradeCSV(r io.Reader) ([]fills.Fill, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, req := range []string{"timestamp", "side", "price", "size"} {
		if _, ok := col[req]; !ok {
			return nil, fmt.Errorf("missing column %q", req)
		}
	}
	idCol, hasID := col["trdMatchID"]

	var out []fills.Fill
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		sec, err := strconv.ParseFloat(rec[col["timestamp"]], 64)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp %q", rec[col["timestamp"]])
		}
		price, err := strconv.ParseFloat(rec[col["price"]], 64)
		if err != nil {
			return nil, fmt.Errorf("bad price %q", rec[col["price"]])
		}
		size, err := strconv.ParseFloat(rec[col["size"]], 64)
		if err != nil {
			return nil, fmt.Errorf("bad size %q", rec[col["size"]])
		}

		side := fills.Buy
		if rec[col["side"]] == "Sell" {
			side = fills.Sell
		}

		ts := time.Unix(int64(sec), int64((sec-float64(int64(sec)))*1e9)).UTC()

		fid := ""
		if hasID && idCol < len(rec) {
			fid = rec[idCol]
		}
		if fid == "" {
			fid = id.NewAt(ts)
		}

		out = append(out, fills.Fill{
			ID:       fid,
			Time:     ts,
			Kind:     fills.Trade,
			Side:     side,
			Price:    price,
			Quantity: size,
			Value:    price * size,
		})
	}
	return out, nil
}
