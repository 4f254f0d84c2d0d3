package bybit

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/perpstats/perpstats/fills"
)

const execPageLimit = 200

// execution is one record of the private execution-history endpoint.
// Numeric fields arrive as strings.
type execution struct {
	ExecID    string  `json:"exec_id"`
	ExecTime  string  `json:"exec_time"`
	ExecType  string  `json:"exec_type"`
	OrderType string  `json:"order_type"`
	Side      string  `json:"side"`
	ExecPrice string  `json:"exec_price"`
	ExecQty   float64 `json:"exec_qty"`
	ExecValue string  `json:"exec_value"`
	FeeRate   string  `json:"fee_rate"`
	ExecFee   string  `json:"exec_fee"`
}

type executionList struct {
	TradeList []execution `json:"trade_list"`
}

// ExecutionsRequest bounds a private execution-history fetch.
type ExecutionsRequest struct {
	Symbol string
	// From is the earliest execution time wanted; the venue returns
	// everything from this point forward, page by page.
	From time.Time
}

// GetExecutions pages through the account's execution history from
// req.From and maps every record into a Fill. The result is raw: callers
// normalize it before reconstruction (pages can overlap).
func (c *Client) GetExecutions(ctx context.Context, req ExecutionsRequest) ([]fills.Fill, error) {
	if req.Symbol == "" {
		return nil, fmt.Errorf("bybit: symbol is required")
	}

	var out []fills.Fill
	for page := 0; ; page++ {
		params := url.Values{}
		params.Set("symbol", req.Symbol)
		params.Set("start_time", strconv.FormatInt(req.From.UnixMilli(), 10))
		params.Set("page", strconv.Itoa(page))
		params.Set("limit", strconv.Itoa(execPageLimit))

		var list executionList
		if err := c.getSigned(ctx, "/v2/private/execution/list", params, &list); err != nil {
			return nil, fmt.Errorf("bybit: executions page %d: %w", page, err)
		}
		if len(list.TradeList) == 0 {
			break
		}

		for _, e := range list.TradeList {
			f, err := e.toFill()
			if err != nil {
				return nil, fmt.Errorf("bybit: executions page %d: %w", page, err)
			}
			out = append(out, f)
		}

		c.log.Debug().
			Int("page", page).
			Int("total", len(out)).
			Str("last", out[len(out)-1].Time.Format(time.RFC3339)).
			Msg("fetched executions")

		if len(list.TradeList) < execPageLimit {
			break
		}
	}
	return out, nil
}

// toFill maps a venue execution record onto the core's Fill. Unparseable
// numerics become NaN rather than an error here: the ledger builder owns
// validation and will name the offending fill.
func (e execution) toFill() (fills.Fill, error) {
	sec, err := strconv.ParseFloat(e.ExecTime, 64)
	if err != nil {
		return fills.Fill{}, fmt.Errorf("execution %s: bad exec_time %q", e.ExecID, e.ExecTime)
	}
	whole, frac := math.Modf(sec)

	kind := fills.Trade
	if e.ExecType == "Funding" {
		kind = fills.Funding
	}

	var side fills.Side
	switch e.Side {
	case "Buy":
		side = fills.Buy
	case "Sell":
		side = fills.Sell
	}

	return fills.Fill{
		ID:       e.ExecID,
		Time:     time.Unix(int64(whole), int64(frac*1e9)).UTC(),
		Kind:     kind,
		Side:     side,
		Price:    parseOrNaN(e.ExecPrice),
		Quantity: e.ExecQty,
		Value:    parseOrNaN(e.ExecValue),
		Fee:      parseOrNaN(e.ExecFee),
	}, nil
}

func parseOrNaN(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
