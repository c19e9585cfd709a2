package search

import "github.com/alex-user-go/bizfinder/internal/search/types"

// PremiumSource is the provider identity preferred when two colliding
// records carry the same amount of contact information.
const PremiumSource = "Google Places API"

// Dedupe collapses records that share a dedup identity (lower-cased
// name and address) into a single survivor per identity. Output keeps
// the first-seen order of identities. Pure function, no I/O.
func Dedupe(records []types.Record) []types.Record {
	index := make(map[string]int, len(records))
	out := make([]types.Record, 0, len(records))

	for _, r := range records {
		key := r.Key()
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, r)
			continue
		}
		if replaces(r, out[i]) {
			out[i] = r
		}
	}

	return out
}

// replaces applies the tie-break rules in order: email presence, phone
// presence, premium source, then populated field count. On an exact tie
// the existing survivor stays, so dedup is stable.
func replaces(challenger, survivor types.Record) bool {
	if challenger.Email != "" && survivor.Email == "" {
		return true
	}
	if challenger.Phone != "" && survivor.Phone == "" {
		return true
	}
	if challenger.Source == PremiumSource && survivor.Source != PremiumSource {
		return true
	}
	return challenger.Populated() > survivor.Populated()
}
