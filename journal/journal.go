// Package journal persists reconstructed ledgers and their reports so a
// run can be inspected or re-analyzed later without refetching venue
// history. SQLite and CSV backends share the Journal interface.
package journal

import (
	"github.com/perpstats/perpstats/ledger"
	"github.com/perpstats/perpstats/stats"
)

type Journal interface {
	RecordEntry(symbol string, e ledger.Entry) error
	RecordReport(symbol string, r stats.Report) error
	Close() error
}
