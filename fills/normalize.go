package fills

import "sort"

// Normalize sorts a raw fill collection into canonical chronological order
// and drops exact duplicate identifiers, keeping the record seen last in the
// input. Overlapping paginated fetches routinely return the same execution
// twice; everything downstream assumes each fill appears exactly once.
//
// Normalize does not validate prices or quantities. Malformed records pass
// through untouched and are the ledger builder's problem.
func Normalize(in []Fill) []Fill {
	out := make([]Fill, 0, len(in))
	seen := make(map[string]int, len(in))

	for _, f := range in {
		if f.ID == "" {
			// No identifier to dedupe on; keep the record.
			out = append(out, f)
			continue
		}
		if i, ok := seen[f.ID]; ok {
			out[i] = f
			continue
		}
		seen[f.ID] = len(out)
		out = append(out, f)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})
	return out
}
