package metrics

// Stage is one step of the conversion funnel.
type Stage struct {
	Name          string  `json:"name"`
	Value         int64   `json:"value"`
	PctOfInitial  float64 `json:"pct_of_initial"`
	PctOfPrevious float64 `json:"pct_of_previous"`
}

// Funnel is the sent -> booked conversion funnel with its
// efficiency ratios.
type Funnel struct {
	Stages         []Stage `json:"stages"`
	DeliveryRate   float64 `json:"delivery_rate"`
	EngagementRate float64 `json:"engagement_rate"`
	CloseRate      float64 `json:"close_rate"`
}

// Funnel stage names.
const (
	StageSent      = "Sent"
	StageDelivered = "Delivered"
	StageReplies   = "Replies"
	StageQualified = "Qualified"
	StageBooked    = "Booked"
)

// BuildFunnel computes the funnel for t.
func BuildFunnel(t Totals) Funnel {
	values := []struct {
		name  string
		value int64
	}{
		{StageSent, t.Sent},
		{StageDelivered, t.Delivered()},
		{StageReplies, t.Replies},
		{StageQualified, t.Qualified},
		{StageBooked, t.Booked},
	}

	stages := make([]Stage, len(values))
	for i, v := range values {
		prev := v.value
		if i > 0 {
			prev = values[i-1].value
		}
		stages[i] = Stage{
			Name:          v.name,
			Value:         v.value,
			PctOfInitial:  Percent(v.value, t.Sent),
			PctOfPrevious: Percent(v.value, prev),
		}
	}

	return Funnel{
		Stages:         stages,
		DeliveryRate:   Percent(t.Delivered(), t.Sent),
		EngagementRate: Percent(t.Replies, t.Delivered()),
		CloseRate:      Percent(t.Booked, t.Qualified),
	}
}
