// Package seed generates a deterministic demo dataset for a
// fresh store.
package seed

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/wesm/outboundview/internal/db"
	"github.com/wesm/outboundview/internal/metrics"
)

// DefaultDays is the number of days generated when Options.Days
// is zero.
const DefaultDays = 60

type channelSpec struct {
	account  string
	funnel   string
	chType   string
	chID     string
	alias    string // empty: no alias row
	inactive bool   // alias row exists but is switched off
	daily    int64
	// replyPm is per mille; the other rates are percents.
	replyPm   int64
	qualPct   int64
	bookPct   int64
	failPct   int
	limitDays int // every n-th day hits the send limit; 0 never
}

var channels = []channelSpec{
	{
		account: "acme", funnel: "saas-founders", chType: "email",
		chID: "sales@acme.test", alias: "Acme sales inbox",
		daily: 180, replyPm: 120, qualPct: 35, bookPct: 20,
		failPct: 2,
	},
	{
		account: "acme", funnel: "saas-founders", chType: "linkedin",
		chID: "in/acme-sdr", alias: "Acme SDR LinkedIn",
		daily: 40, replyPm: 180, qualPct: 40, bookPct: 25,
		failPct: 1, limitDays: 9,
	},
	{
		account: "acme", funnel: "agencies", chType: "email",
		chID: "hello@acme.test", alias: "Acme hello inbox",
		inactive: true,
		daily: 90, replyPm: 45, qualPct: 20, bookPct: 10,
		failPct: 6,
	},
	{
		account: "globex", funnel: "enterprise-it", chType: "email",
		chID: "outbound@globex.test", alias: "Globex outbound",
		daily: 250, replyPm: 60, qualPct: 25, bookPct: 15,
		failPct: 4,
	},
	{
		account: "globex", funnel: "enterprise-it", chType: "whatsapp",
		chID: "+15550100",
		daily: 30, replyPm: 220, qualPct: 30, bookPct: 30,
		failPct: 3, limitDays: 14,
	},
	{
		account: "initech", funnel: "smb-retail", chType: "email",
		chID: "team@initech.test", alias: "Initech team",
		daily: 60, replyPm: 25, qualPct: 15, bookPct: 5,
		failPct: 11,
	},
}

var accounts = []db.Account{
	{Account: "acme", FullName: "Acme Corp", Description: "Developer tools", Active: true},
	{Account: "globex", FullName: "Globex Corporation", Description: "IT services", Active: true},
	{Account: "initech", FullName: "Initech", Description: "Retail software", Active: true},
}

// activities split each channel's daily volume.
var activities = []struct {
	name  string
	share int64
}{
	{"first_touch", 60},
	{"follow_up", 30},
	{"breakup", 10},
}

// Options controls the generated range.
type Options struct {
	// End is the last generated day. Zero means today (UTC).
	End time.Time
	// Days is the number of days ending at End.
	Days int
	// Seed makes the jitter reproducible.
	Seed uint64
}

// Generate returns the demo batch. The same Options always
// produce the same batch.
func Generate(opts Options) db.Batch {
	if opts.Days <= 0 {
		opts.Days = DefaultDays
	}
	end := opts.End
	if end.IsZero() {
		end = time.Now().UTC()
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	r := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	b := db.Batch{Accounts: append([]db.Account(nil), accounts...)}
	for _, c := range channels {
		if c.alias == "" {
			continue
		}
		b.Aliases = append(b.Aliases, db.Alias{
			Account:     c.account,
			ChannelType: c.chType,
			Identifier:  c.chID,
			Alias:       c.alias,
			Active:      !c.inactive,
		})
	}

	for i := opts.Days - 1; i >= 0; i-- {
		day := end.AddDate(0, 0, -i)
		date := day.Format(time.DateOnly)
		weekend := day.Weekday() == time.Saturday ||
			day.Weekday() == time.Sunday

		for n, c := range channels {
			daily := c.daily
			if weekend {
				daily /= 4
			}
			if daily == 0 {
				continue
			}
			limited := c.limitDays > 0 && (i+n)%c.limitDays == 0

			var sentToday int64
			for _, a := range activities {
				sent := jitter(r, daily*a.share/100)
				if sent == 0 {
					continue
				}
				s := metrics.SendRecord{
					Date:              date,
					Account:           c.account,
					Funnel:            c.funnel,
					ChannelType:       c.chType,
					ChannelIdentifier: c.chID,
					ActivityType:      a.name,
					Sent:              sent,
					Failed:            sent * int64(r.IntN(c.failPct*2+1)) / 100,
					LastSentAt: day.Add(
						time.Duration(9+r.IntN(9)) * time.Hour,
					).Format(time.RFC3339),
				}
				if limited && a.name == "first_touch" {
					s.LimitReached = 1
				}
				sentToday += sent
				b.Sends = append(b.Sends, s)
			}

			replies := jitter(r, sentToday*c.replyPm/1000)
			if replies == 0 {
				continue
			}
			qualified := replies * c.qualPct / 100
			booked := qualified * c.bookPct / 100
			interested := (replies - qualified) / 3
			auto := replies / 10
			disqualified := replies / 20
			notInterested := (replies - qualified - interested - auto) / 2
			b.Replies = append(b.Replies, metrics.ReplyRecord{
				Date:              date,
				Account:           c.account,
				Funnel:            c.funnel,
				ChannelType:       c.chType,
				ChannelIdentifier: c.chID,
				Replies:           replies,
				Qualified:         qualified,
				Interested:        interested,
				NotInterested:     notInterested,
				Booked:            booked,
				Disqualified:      disqualified,
				AutoReplies:       auto,
				Other: replies - qualified - interested -
					notInterested - auto - disqualified,
			})
		}
	}
	return b
}

// jitter returns n varied by up to 20% either way.
func jitter(r *rand.Rand, n int64) int64 {
	if n <= 0 {
		return 0
	}
	spread := n / 5
	if spread == 0 {
		return n
	}
	return n - spread + r.Int64N(2*spread+1)
}

// Describe summarizes b for command output.
func Describe(b db.Batch) string {
	var sent, replies int64
	for _, s := range b.Sends {
		sent += s.Sent
	}
	for _, r := range b.Replies {
		replies += r.Replies
	}
	return fmt.Sprintf(
		"%d accounts, %d aliases, %d send rows (%d sent), %d reply rows (%d replies)",
		len(b.Accounts), len(b.Aliases),
		len(b.Sends), sent, len(b.Replies), replies,
	)
}
