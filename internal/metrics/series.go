package metrics

import "sort"

// SendDay is one day of the outbound activity series.
type SendDay struct {
	Date   string `json:"date"`
	Sent   int64  `json:"sent"`
	Failed int64  `json:"failed"`
}

// ReplyDay is one day of the replies and conversions series.
type ReplyDay struct {
	Date      string `json:"date"`
	Replies   int64  `json:"replies"`
	Qualified int64  `json:"qualified"`
	Booked    int64  `json:"booked"`
}

// DailySends buckets send records by date, oldest first.
func DailySends(recs []SendRecord) []SendDay {
	days := make(map[string]*SendDay)
	for _, r := range recs {
		d, ok := days[r.Date]
		if !ok {
			d = &SendDay{Date: r.Date}
			days[r.Date] = d
		}
		d.Sent += r.Sent
		d.Failed += r.Failed
	}
	out := make([]SendDay, 0, len(days))
	for _, d := range days {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}

// DailyReplies buckets reply records by date, oldest first.
func DailyReplies(recs []ReplyRecord) []ReplyDay {
	days := make(map[string]*ReplyDay)
	for _, r := range recs {
		d, ok := days[r.Date]
		if !ok {
			d = &ReplyDay{Date: r.Date}
			days[r.Date] = d
		}
		d.Replies += r.Replies
		d.Qualified += r.Qualified
		d.Booked += r.Booked
	}
	out := make([]ReplyDay, 0, len(days))
	for _, d := range days {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}
