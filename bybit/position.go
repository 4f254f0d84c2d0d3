package bybit

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/perpstats/perpstats/ledger"
)

// position is the private position-list record, trimmed to what the
// reconstruction needs.
type position struct {
	Side          string  `json:"side"`
	Size          float64 `json:"size"`
	WalletBalance string  `json:"wallet_balance"`
}

// GetPosition observes the current signed position size and wallet balance
// for a symbol. The snapshot timestamp is taken client-side at the moment
// of the call; reconstruction only requires it to be at or after the end of
// the fill history.
func (c *Client) GetPosition(ctx context.Context, symbol string) (ledger.PositionSnapshot, error) {
	if symbol == "" {
		return ledger.PositionSnapshot{}, fmt.Errorf("bybit: symbol is required")
	}

	params := url.Values{}
	params.Set("symbol", symbol)

	var pos position
	if err := c.getSigned(ctx, "/v2/private/position/list", params, &pos); err != nil {
		return ledger.PositionSnapshot{}, fmt.Errorf("bybit: position: %w", err)
	}

	size := pos.Size
	if pos.Side == "Sell" {
		size = -size
	}
	balance, err := strconv.ParseFloat(pos.WalletBalance, 64)
	if err != nil {
		return ledger.PositionSnapshot{}, fmt.Errorf("bybit: position: bad wallet_balance %q", pos.WalletBalance)
	}

	return ledger.PositionSnapshot{
		Size:    size,
		Balance: balance,
		Time:    time.Now().UTC(),
	}, nil
}
