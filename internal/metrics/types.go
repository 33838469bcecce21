package metrics

// SendRecord is one row of send activity for a day, account,
// channel and activity type.
type SendRecord struct {
	Date              string `json:"date"`
	Account           string `json:"account"`
	Funnel            string `json:"funnel"`
	ChannelType       string `json:"channel_type"`
	ChannelIdentifier string `json:"channel_identifier"`
	Origin            string `json:"origin"`
	ActivityType      string `json:"activity_type"`
	Sent              int64  `json:"sent"`
	Failed            int64  `json:"failed"`
	LimitReached      int64  `json:"limit_reached"`
	LastSentAt        string `json:"last_sent_at,omitempty"`
}

// ReplyRecord is one row of reply outcomes at the same
// granularity as SendRecord, minus the activity type.
type ReplyRecord struct {
	Date              string `json:"date"`
	Account           string `json:"account"`
	Funnel            string `json:"funnel"`
	ChannelType       string `json:"channel_type"`
	ChannelIdentifier string `json:"channel_identifier"`
	Origin            string `json:"origin"`
	Replies           int64  `json:"replies"`
	Qualified         int64  `json:"qualified"`
	Interested        int64  `json:"interested"`
	NotInterested     int64  `json:"not_interested"`
	Booked            int64  `json:"booked"`
	Disqualified      int64  `json:"disqualified"`
	AutoReplies       int64  `json:"auto_replies"`
	Other             int64  `json:"other"`
}

// Totals holds the summable counters of a group of rows.
// Rates are always derived from Totals, never summed.
type Totals struct {
	Sent         int64 `json:"total_sent"`
	Failed       int64 `json:"total_failed"`
	LimitReached int64 `json:"limit_reached"`
	Replies      int64 `json:"total_replies"`
	Qualified    int64 `json:"total_qualified"`
	Interested   int64 `json:"total_interested"`
	Booked       int64 `json:"total_booked"`
}

// Add returns the field-wise sum of t and o.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Sent:         t.Sent + o.Sent,
		Failed:       t.Failed + o.Failed,
		LimitReached: t.LimitReached + o.LimitReached,
		Replies:      t.Replies + o.Replies,
		Qualified:    t.Qualified + o.Qualified,
		Interested:   t.Interested + o.Interested,
		Booked:       t.Booked + o.Booked,
	}
}

// Delivered is the number of sends not marked failed.
func (t Totals) Delivered() int64 {
	return t.Sent - t.Failed
}

// Percent returns num/den on the percentage scale, or 0 when
// den is 0.
func Percent(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) * 100 / float64(den)
}

// Aggregate is a Totals with its derived rates.
type Aggregate struct {
	Totals
	DeliveryRate      float64 `json:"delivery_rate"`
	ReplyRate         float64 `json:"reply_rate"`
	ConversionRate    float64 `json:"conversion_rate"`
	QualificationRate float64 `json:"qualification_rate"`
}

// Aggregate derives the rates of t.
func (t Totals) Aggregate() Aggregate {
	return Aggregate{
		Totals:            t,
		DeliveryRate:      Percent(t.Delivered(), t.Sent),
		ReplyRate:         Percent(t.Replies, t.Sent),
		ConversionRate:    Percent(t.Booked, t.Sent),
		QualificationRate: Percent(t.Qualified, t.Replies),
	}
}

// Key identifies a metric row: the grain the data layer
// groups by.
type Key struct {
	Account      string `json:"account"`
	Origin       string `json:"origin"`
	Funnel       string `json:"funnel"`
	ChannelType  string `json:"channel_type"`
	ActivityType string `json:"activity_type"`
}

// Row is the unit every rendering component consumes.
type Row struct {
	Key
	Aggregate
}

// NewRow builds a Row with rates derived from t.
func NewRow(k Key, t Totals) Row {
	return Row{Key: k, Aggregate: t.Aggregate()}
}
