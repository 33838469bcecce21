package dashboard

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wesm/outboundview/internal/db"
)

// DefaultRangeDays is the length of the date range used when
// the request names neither end.
const DefaultRangeDays = 30

// AllValue is the select value meaning "no filter".
const AllValue = "all"

// Query is the raw filter state submitted by a client. Every
// field may be empty.
type Query struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Account string `json:"account"`
	Origin  string `json:"origin"`
	Funnel  string `json:"funnel"`
}

// ParseQuery reads the filter parameters from URL values.
func ParseQuery(v url.Values) Query {
	return Query{
		From:    strings.TrimSpace(v.Get("from")),
		To:      strings.TrimSpace(v.Get("to")),
		Account: strings.TrimSpace(v.Get("account")),
		Origin:  strings.TrimSpace(v.Get("origin")),
		Funnel:  strings.TrimSpace(v.Get("funnel")),
	}
}

// Values encodes q as URL parameters, omitting empty fields.
func (q Query) Values() url.Values {
	v := url.Values{}
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	set("from", q.From)
	set("to", q.To)
	set("account", q.Account)
	set("origin", q.Origin)
	set("funnel", q.Funnel)
	return v
}

// ValidationError reports a filter that cannot be fetched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Resolve validates q and fills defaults relative to today:
// a missing end is today, a missing start is DefaultRangeDays
// before the end. "all" and empty selections mean no filter.
func Resolve(q Query, today time.Time) (db.Filter, error) {
	to := today
	if q.To != "" {
		t, err := time.Parse(time.DateOnly, q.To)
		if err != nil {
			return db.Filter{}, &ValidationError{
				Field:   "to",
				Message: fmt.Sprintf("Invalid end date %q.", q.To),
			}
		}
		to = t
	}

	from := to.AddDate(0, 0, -(DefaultRangeDays - 1))
	if q.From != "" {
		t, err := time.Parse(time.DateOnly, q.From)
		if err != nil {
			return db.Filter{}, &ValidationError{
				Field:   "from",
				Message: fmt.Sprintf("Invalid start date %q.", q.From),
			}
		}
		from = t
	}

	if from.After(to) {
		return db.Filter{}, &ValidationError{
			Field:   "from",
			Message: "Start date must be on or before the end date.",
		}
	}

	return db.Filter{
		From:    from.Format(time.DateOnly),
		To:      to.Format(time.DateOnly),
		Account: selection(q.Account),
		Origin:  selection(q.Origin),
		Funnel:  selection(q.Funnel),
	}, nil
}

func selection(s string) string {
	if strings.EqualFold(s, AllValue) {
		return ""
	}
	return s
}
