package metrics

import (
	"encoding/json"
	"sort"
)

// Cardinality tells the renderer whether a level of the
// hierarchy has one child or several. It is resolved once when
// the hierarchy is built.
type Cardinality int

const (
	Single Cardinality = iota
	Multiple
)

// CardinalityOf resolves the variant for n children.
func CardinalityOf(n int) Cardinality {
	if n > 1 {
		return Multiple
	}
	return Single
}

func (c Cardinality) String() string {
	if c == Multiple {
		return "multiple"
	}
	return "single"
}

// MarshalJSON encodes the variant by name.
func (c Cardinality) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// ActivityNode is the leaf level: one activity type of an
// origin.
type ActivityNode struct {
	Activity string `json:"activity"`
	Aggregate
}

// OriginNode is one origin of an account. Layout describes its
// activities.
type OriginNode struct {
	Origin     string         `json:"origin"`
	Layout     Cardinality    `json:"layout"`
	Activities []ActivityNode `json:"activities"`
	Aggregate
}

// AccountNode is one account. Layout describes its origins.
type AccountNode struct {
	Account string       `json:"account"`
	Layout  Cardinality  `json:"layout"`
	Origins []OriginNode `json:"origins"`
	Aggregate
}

// Hierarchy is the account -> origin -> activity drill-down.
// Layout describes the accounts level.
type Hierarchy struct {
	Layout   Cardinality   `json:"layout"`
	Accounts []AccountNode `json:"accounts"`
}

// BuildHierarchy rolls rows up at every level, each level
// re-deriving its rates from summed counters. Children are
// ordered by sent volume, then name.
func BuildHierarchy(rows []Row) Hierarchy {
	accounts := ByAccount(rows)
	origins := ByAccountOrigin(rows)
	activities := ByAccountOriginActivity(rows)

	originsOf := make(map[string][]string)
	for k := range origins {
		originsOf[k.Account] = append(originsOf[k.Account], k.Origin)
	}
	activitiesOf := make(map[OriginKey][]string)
	for k := range activities {
		ok := OriginKey{Account: k.Account, Origin: k.Origin}
		activitiesOf[ok] = append(activitiesOf[ok], k.Activity)
	}

	var h Hierarchy
	for _, acct := range SortedByVolume(accounts) {
		node := AccountNode{
			Account:   acct.Name,
			Aggregate: acct.Aggregate,
		}
		names := originsOf[acct.Name]
		sortNames(names, func(n string) int64 {
			return origins[OriginKey{acct.Name, n}].Sent
		})
		for _, o := range names {
			ok := OriginKey{Account: acct.Name, Origin: o}
			on := OriginNode{Origin: o, Aggregate: origins[ok]}
			acts := activitiesOf[ok]
			sortNames(acts, func(n string) int64 {
				return activities[ActivityKey{acct.Name, o, n}].Sent
			})
			for _, a := range acts {
				on.Activities = append(on.Activities, ActivityNode{
					Activity:  a,
					Aggregate: activities[ActivityKey{acct.Name, o, a}],
				})
			}
			on.Layout = CardinalityOf(len(on.Activities))
			node.Origins = append(node.Origins, on)
		}
		node.Layout = CardinalityOf(len(node.Origins))
		h.Accounts = append(h.Accounts, node)
	}
	h.Layout = CardinalityOf(len(h.Accounts))
	return h
}

func sortNames(names []string, sent func(string) int64) {
	sort.Slice(names, func(i, j int) bool {
		return byVolume(
			sent(names[i]), sent(names[j]), names[i], names[j],
		)
	})
}
