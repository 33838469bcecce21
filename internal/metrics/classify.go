package metrics

// Kind names a rate that can be classified.
type Kind string

const (
	KindReplyRate         Kind = "reply_rate"
	KindConversionRate    Kind = "conversion_rate"
	KindDeliveryRate      Kind = "delivery_rate"
	KindQualificationRate Kind = "qualification_rate"
)

// Tier is the display tier of a rate.
type Tier string

const (
	TierGood    Tier = "good"
	TierWarning Tier = "warning"
	TierPoor    Tier = "poor"
)

// thresholds holds the exclusive lower bounds for the good and
// warning tiers of each kind.
var thresholds = map[Kind]struct{ good, warning float64 }{
	KindReplyRate:         {good: 10, warning: 5},
	KindConversionRate:    {good: 3, warning: 1},
	KindDeliveryRate:      {good: 95, warning: 90},
	KindQualificationRate: {good: 30, warning: 20},
}

// Classify maps a percentage to its display tier. Unknown
// kinds return the empty tier.
func Classify(value float64, kind Kind) Tier {
	th, ok := thresholds[kind]
	if !ok {
		return ""
	}
	switch {
	case value > th.good:
		return TierGood
	case value > th.warning:
		return TierWarning
	default:
		return TierPoor
	}
}

// Tiers classifies every rate of an aggregate.
type Tiers struct {
	Delivery      Tier `json:"delivery"`
	Reply         Tier `json:"reply"`
	Conversion    Tier `json:"conversion"`
	Qualification Tier `json:"qualification"`
}

// TiersOf classifies the rates of a.
func TiersOf(a Aggregate) Tiers {
	return Tiers{
		Delivery:      Classify(a.DeliveryRate, KindDeliveryRate),
		Reply:         Classify(a.ReplyRate, KindReplyRate),
		Conversion:    Classify(a.ConversionRate, KindConversionRate),
		Qualification: Classify(a.QualificationRate, KindQualificationRate),
	}
}
