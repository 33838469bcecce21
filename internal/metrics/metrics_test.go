package metrics

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(
	account, origin, activity string, t Totals,
) Row {
	return NewRow(Key{
		Account:      account,
		Origin:       origin,
		Funnel:       "default",
		ChannelType:  "email",
		ActivityType: activity,
	}, t)
}

func sampleRows() []Row {
	return []Row{
		row("acme", "Sales inbox", "first_touch",
			Totals{Sent: 100, Failed: 2, Replies: 10, Qualified: 4, Booked: 2}),
		row("acme", "Sales inbox", "follow_up",
			Totals{Sent: 50, Failed: 1, Replies: 2, Qualified: 1, Booked: 0}),
		row("acme", "linkedin - jane", "connect",
			Totals{Sent: 10, Failed: 0, Replies: 5, Qualified: 2, Booked: 1, LimitReached: 1}),
		row("globex", "Sales inbox", "first_touch",
			Totals{Sent: 30, Failed: 3, Replies: 1, Qualified: 0, Booked: 0}),
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name     string
		num, den int64
		want     float64
	}{
		{"zero denominator", 5, 0, 0},
		{"zero numerator", 0, 10, 0},
		{"half", 1, 2, 50},
		{"over 100", 3, 2, 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Percent(tt.num, tt.den))
		})
	}
}

func TestAggregate_ZeroSentYieldsZeroRates(t *testing.T) {
	a := Totals{Sent: 0, Failed: 3, Replies: 4, Booked: 1}.Aggregate()
	assert.Zero(t, a.DeliveryRate)
	assert.Zero(t, a.ReplyRate)
	assert.Zero(t, a.ConversionRate)
}

func TestAggregate_ReferenceRates(t *testing.T) {
	a := Totals{
		Sent: 1000, Failed: 20, Replies: 150, Booked: 25,
	}.Aggregate()
	assert.Equal(t, 98.0, a.DeliveryRate)
	assert.Equal(t, 15.0, a.ReplyRate)
	assert.Equal(t, 2.5, a.ConversionRate)
	assert.Equal(t, TierWarning, Classify(a.ConversionRate, KindConversionRate))
}

func TestAggregate_FailedAboveSentIsNotClamped(t *testing.T) {
	a := Totals{Sent: 10, Failed: 12}.Aggregate()
	assert.Equal(t, -20.0, a.DeliveryRate)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		value float64
		kind  Kind
		want  Tier
	}{
		{96, KindDeliveryRate, TierGood},
		{92, KindDeliveryRate, TierWarning},
		{50, KindDeliveryRate, TierPoor},
		{95, KindDeliveryRate, TierWarning},
		{90, KindDeliveryRate, TierPoor},
		{10.5, KindReplyRate, TierGood},
		{10, KindReplyRate, TierWarning},
		{5, KindReplyRate, TierPoor},
		{3.1, KindConversionRate, TierGood},
		{2.5, KindConversionRate, TierWarning},
		{1, KindConversionRate, TierPoor},
		{31, KindQualificationRate, TierGood},
		{25, KindQualificationRate, TierWarning},
		{20, KindQualificationRate, TierPoor},
		{99, Kind("bogus"), ""},
	}
	for _, tt := range tests {
		got := Classify(tt.value, tt.kind)
		if got != tt.want {
			t.Errorf("Classify(%v, %s) = %q, want %q",
				tt.value, tt.kind, got, tt.want)
		}
	}
}

func TestByAccount_SumThenDivide(t *testing.T) {
	got := ByAccount(sampleRows())
	require.Len(t, got, 2)

	acme := got["acme"]
	assert.Equal(t, int64(160), acme.Sent)
	assert.Equal(t, int64(3), acme.Failed)
	assert.Equal(t, int64(17), acme.Replies)
	assert.Equal(t, int64(3), acme.Booked)
	assert.Equal(t, int64(1), acme.LimitReached)
	// 17/160, not the mean of 10%, 4% and 50%.
	assert.InDelta(t, 10.625, acme.ReplyRate, 1e-9)
	assert.InDelta(t, 1.875, acme.ConversionRate, 1e-9)
}

func TestByAccountOriginAndActivity(t *testing.T) {
	rows := sampleRows()

	origins := ByAccountOrigin(rows)
	require.Len(t, origins, 3)
	inbox := origins[OriginKey{Account: "acme", Origin: "Sales inbox"}]
	assert.Equal(t, int64(150), inbox.Sent)
	assert.InDelta(t, 8.0, inbox.ReplyRate, 1e-9)

	acts := ByAccountOriginActivity(rows)
	require.Len(t, acts, 4)
	ft := acts[ActivityKey{"acme", "Sales inbox", "first_touch"}]
	assert.Equal(t, int64(100), ft.Sent)
	assert.InDelta(t, 2.0, ft.ConversionRate, 1e-9)
}

func TestRollupAssociativity(t *testing.T) {
	rows := sampleRows()
	partitions := [][2][]Row{
		{rows[:1], rows[1:]},
		{rows[:2], rows[2:]},
		{{rows[0], rows[3]}, {rows[1], rows[2]}},
		{nil, rows},
	}
	whole := ByAccount(rows)
	for i, p := range partitions {
		left, right := ByAccount(p[0]), ByAccount(p[1])
		for name, want := range whole {
			got := left[name].Totals.Add(right[name].Totals)
			if diff := cmp.Diff(want.Totals, got); diff != "" {
				t.Errorf("partition %d, account %s (-want +got):\n%s",
					i, name, diff)
			}
			assert.Equal(t, want, got.Aggregate(),
				"partition %d rates", i)
		}
	}
}

func TestTotal(t *testing.T) {
	got := Total(sampleRows())
	assert.Equal(t, int64(190), got.Sent)
	assert.Equal(t, int64(18), got.Replies)
	assert.Equal(t, int64(7), got.Qualified)
	assert.InDelta(t, 7.0/18.0*100, got.QualificationRate, 1e-9)

	empty := Total(nil)
	assert.Equal(t, Aggregate{}, empty)
}

func TestSortedByVolume(t *testing.T) {
	got := SortedByVolume(map[string]Aggregate{
		"b": Totals{Sent: 10}.Aggregate(),
		"a": Totals{Sent: 10}.Aggregate(),
		"c": Totals{Sent: 30}.Aggregate(),
	})
	names := make([]string, len(got))
	for i, n := range got {
		names[i] = n.Name
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestSortedOrigins(t *testing.T) {
	got := SortedOrigins(sampleRows(), 0)
	require.Len(t, got, 2)
	assert.Equal(t, "Sales inbox", got[0].Origin)
	assert.Equal(t, int64(180), got[0].Sent)
	assert.Equal(t, "linkedin - jane", got[1].Origin)

	top := SortedOrigins(sampleRows(), 1)
	assert.Len(t, top, 1)
}

func TestChannelShares(t *testing.T) {
	rows := sampleRows()
	rows = append(rows, NewRow(Key{
		Account: "acme", Origin: "li", ChannelType: "linkedin",
	}, Totals{Sent: 10}))

	got := ChannelShares(rows)
	want := []ChannelShare{
		{ChannelType: "email", Sent: 190, Share: 95},
		{ChannelType: "linkedin", Sent: 10, Share: 5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ChannelShares mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildFunnel(t *testing.T) {
	f := BuildFunnel(Totals{
		Sent: 200, Failed: 20, Replies: 18, Qualified: 9, Booked: 3,
	})
	require.Len(t, f.Stages, 5)

	assert.Equal(t, StageSent, f.Stages[0].Name)
	assert.Equal(t, 100.0, f.Stages[0].PctOfInitial)
	assert.Equal(t, 100.0, f.Stages[0].PctOfPrevious)

	assert.Equal(t, int64(180), f.Stages[1].Value)
	assert.Equal(t, 90.0, f.Stages[1].PctOfInitial)

	assert.Equal(t, StageBooked, f.Stages[4].Name)
	assert.InDelta(t, 1.5, f.Stages[4].PctOfInitial, 1e-9)
	assert.InDelta(t, 100.0/3.0, f.Stages[4].PctOfPrevious, 1e-9)

	assert.Equal(t, 90.0, f.DeliveryRate)
	assert.Equal(t, 10.0, f.EngagementRate)
	assert.InDelta(t, 100.0/3.0, f.CloseRate, 1e-9)
}

func TestBuildFunnel_Empty(t *testing.T) {
	f := BuildFunnel(Totals{})
	for _, s := range f.Stages {
		assert.Zero(t, s.PctOfInitial, s.Name)
		assert.Zero(t, s.PctOfPrevious, s.Name)
	}
	assert.Zero(t, f.CloseRate)
}

func TestDailySeries(t *testing.T) {
	sends := DailySends([]SendRecord{
		{Date: "2024-06-02", Sent: 5, Failed: 1},
		{Date: "2024-06-01", Sent: 10},
		{Date: "2024-06-02", Sent: 7, Failed: 2},
	})
	want := []SendDay{
		{Date: "2024-06-01", Sent: 10},
		{Date: "2024-06-02", Sent: 12, Failed: 3},
	}
	if diff := cmp.Diff(want, sends); diff != "" {
		t.Errorf("DailySends mismatch (-want +got):\n%s", diff)
	}

	replies := DailyReplies([]ReplyRecord{
		{Date: "2024-06-03", Replies: 2, Booked: 1},
		{Date: "2024-06-01", Replies: 4, Qualified: 2},
	})
	require.Len(t, replies, 2)
	assert.Equal(t, "2024-06-01", replies[0].Date)
	assert.Equal(t, int64(1), replies[1].Booked)

	assert.Empty(t, DailySends(nil))
}
