package metrics

import "sort"

// OriginKey groups rows by account and origin.
type OriginKey struct {
	Account string
	Origin  string
}

// ActivityKey groups rows by account, origin and activity.
type ActivityKey struct {
	Account  string
	Origin   string
	Activity string
}

// ChannelOriginKey groups rows by origin label and channel
// type, regardless of account.
type ChannelOriginKey struct {
	Origin      string
	ChannelType string
}

// rollup sums the Totals of rows sharing a key and derives
// rates once per group from the sums.
func rollup[K comparable](
	rows []Row, key func(Row) K,
) map[K]Aggregate {
	sums := make(map[K]Totals)
	for _, r := range rows {
		k := key(r)
		sums[k] = sums[k].Add(r.Totals)
	}
	out := make(map[K]Aggregate, len(sums))
	for k, t := range sums {
		out[k] = t.Aggregate()
	}
	return out
}

// Sum adds up the Totals of rows.
func Sum(rows []Row) Totals {
	var t Totals
	for _, r := range rows {
		t = t.Add(r.Totals)
	}
	return t
}

// Total is the global aggregate of rows.
func Total(rows []Row) Aggregate {
	return Sum(rows).Aggregate()
}

// ByAccount rolls rows up per account.
func ByAccount(rows []Row) map[string]Aggregate {
	return rollup(rows, func(r Row) string { return r.Account })
}

// ByAccountOrigin rolls rows up per account and origin.
func ByAccountOrigin(rows []Row) map[OriginKey]Aggregate {
	return rollup(rows, func(r Row) OriginKey {
		return OriginKey{Account: r.Account, Origin: r.Origin}
	})
}

// ByAccountOriginActivity rolls rows up per account, origin
// and activity type.
func ByAccountOriginActivity(
	rows []Row,
) map[ActivityKey]Aggregate {
	return rollup(rows, func(r Row) ActivityKey {
		return ActivityKey{
			Account:  r.Account,
			Origin:   r.Origin,
			Activity: r.ActivityType,
		}
	})
}

// ByOrigin rolls rows up per origin label and channel type
// across accounts.
func ByOrigin(rows []Row) map[ChannelOriginKey]Aggregate {
	return rollup(rows, func(r Row) ChannelOriginKey {
		return ChannelOriginKey{
			Origin: r.Origin, ChannelType: r.ChannelType,
		}
	})
}

// ByChannelType rolls rows up per channel type.
func ByChannelType(rows []Row) map[string]Aggregate {
	return rollup(rows, func(r Row) string { return r.ChannelType })
}

// Named pairs a group label with its aggregate.
type Named struct {
	Name string `json:"name"`
	Aggregate
}

// OriginStat is one line of the origin performance table.
type OriginStat struct {
	Origin      string `json:"origin"`
	ChannelType string `json:"channel_type"`
	Aggregate
}

// ChannelShare is the share of sent volume per channel type.
type ChannelShare struct {
	ChannelType string  `json:"channel_type"`
	Sent        int64   `json:"sent"`
	Share       float64 `json:"share"`
}

// byVolume orders by sent descending, then name ascending so
// output is deterministic.
func byVolume(aSent, bSent int64, aName, bName string) bool {
	if aSent != bSent {
		return aSent > bSent
	}
	return aName < bName
}

// SortedByVolume flattens a per-name rollup into a slice
// ordered by sent volume.
func SortedByVolume(m map[string]Aggregate) []Named {
	out := make([]Named, 0, len(m))
	for name, a := range m {
		out = append(out, Named{Name: name, Aggregate: a})
	}
	sort.Slice(out, func(i, j int) bool {
		return byVolume(
			out[i].Sent, out[j].Sent, out[i].Name, out[j].Name,
		)
	})
	return out
}

// SortedOrigins returns the per-origin rollup ordered by sent
// volume, truncated to limit entries when limit > 0.
func SortedOrigins(rows []Row, limit int) []OriginStat {
	m := ByOrigin(rows)
	out := make([]OriginStat, 0, len(m))
	for k, a := range m {
		out = append(out, OriginStat{
			Origin: k.Origin, ChannelType: k.ChannelType,
			Aggregate: a,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sent != out[j].Sent {
			return out[i].Sent > out[j].Sent
		}
		if out[i].Origin != out[j].Origin {
			return out[i].Origin < out[j].Origin
		}
		return out[i].ChannelType < out[j].ChannelType
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ChannelShares returns each channel type's share of the total
// sent volume, largest first.
func ChannelShares(rows []Row) []ChannelShare {
	named := SortedByVolume(ByChannelType(rows))
	total := Sum(rows).Sent
	out := make([]ChannelShare, 0, len(named))
	for _, n := range named {
		out = append(out, ChannelShare{
			ChannelType: n.Name,
			Sent:        n.Sent,
			Share:       Percent(n.Sent, total),
		})
	}
	return out
}
