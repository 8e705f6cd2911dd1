package earnings

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// =============================================================================
// GROUPING AND RANKING
// =============================================================================

// UserTotals is one worker's records within a period.
type UserTotals struct {
	Nickname     string
	Records      []Record
	Total        decimal.Decimal
	TotalMinutes decimal.Decimal
}

// GroupByUser folds records into per-user totals ordered by nickname.
// Nicknames are grouped case-folded, matching FilterNickname.
func GroupByUser(records []Record) []UserTotals {
	index := make(map[string]int)
	var users []UserTotals

	for _, r := range records {
		key := strings.ToLower(strings.TrimSpace(r.Nickname))
		i, ok := index[key]
		if !ok {
			i = len(users)
			index[key] = i
			users = append(users, UserTotals{
				Nickname:     key,
				Total:        decimal.Zero,
				TotalMinutes: decimal.Zero,
			})
		}
		u := &users[i]
		u.Records = append(u.Records, r)
		u.Total = u.Total.Add(r.TotalEarnings)
		u.TotalMinutes = u.TotalMinutes.Add(r.AutoMinutes)
	}

	for i := range users {
		sort.SliceStable(users[i].Records, func(a, b int) bool {
			return users[i].Records[a].Date < users[i].Records[b].Date
		})
	}
	sort.Slice(users, func(a, b int) bool { return users[a].Nickname < users[b].Nickname })
	return users
}

// Rank orders users by total descending, ties by nickname ascending.
func Rank(users []UserTotals) []UserTotals {
	ranked := append([]UserTotals(nil), users...)
	sort.SliceStable(ranked, func(a, b int) bool {
		if c := ranked[a].Total.Cmp(ranked[b].Total); c != 0 {
			return c > 0
		}
		return ranked[a].Nickname < ranked[b].Nickname
	})
	return ranked
}

// Standing is a leaderboard row.
type Standing struct {
	UserTotals
	Position int // 1-based
	// DiffToPrevious is Total minus the total of the row above; zero for
	// the leader.
	DiffToPrevious decimal.Decimal
	// Share is Total as a percentage of the chart maximum.
	Share decimal.Decimal
	Color string
}

// Standings ranks the period's records and annotates each row. days are
// the period's ISO dates, used for the chart maximum.
func Standings(records []Record, days []string) []Standing {
	ranked := Rank(GroupByUser(records))
	chartMax := ChartMax(ranked, days)

	standings := make([]Standing, 0, len(ranked))
	for i, u := range ranked {
		s := Standing{
			UserTotals:     u,
			Position:       i + 1,
			DiffToPrevious: decimal.Zero,
			Share:          u.Total.Div(chartMax).Mul(hundred),
			Color:          AvatarColor(u.Nickname),
		}
		if i > 0 {
			s.DiffToPrevious = u.Total.Sub(ranked[i-1].Total)
		}
		standings = append(standings, s)
	}
	return standings
}

// =============================================================================
// SERIES
// =============================================================================

// CumulativeSeries is the running total of user's earnings over days.
// Days with no record contribute zero, so the series has one point per
// day and is flat across gaps.
func CumulativeSeries(user UserTotals, days []string) []decimal.Decimal {
	byDay := make(map[string]decimal.Decimal, len(user.Records))
	for _, r := range user.Records {
		byDay[r.Date] = byDay[r.Date].Add(r.TotalEarnings)
	}

	series := make([]decimal.Decimal, len(days))
	running := decimal.Zero
	for i, day := range days {
		if v, ok := byDay[day]; ok {
			running = running.Add(v)
		}
		series[i] = running
	}
	return series
}

// ChartMax is the shared Y-axis maximum: the largest final cumulative
// value among users, or 1 when that is not positive.
func ChartMax(users []UserTotals, days []string) decimal.Decimal {
	max := decimal.Zero
	for _, u := range users {
		series := CumulativeSeries(u, days)
		if len(series) == 0 {
			continue
		}
		if last := series[len(series)-1]; last.GreaterThan(max) {
			max = last
		}
	}
	if !max.IsPositive() {
		return one
	}
	return max
}

// DayValue is one bar of the personal daily chart.
type DayValue struct {
	Day      string
	Earnings decimal.Decimal
	Minutes  decimal.Decimal
}

// DailyValues lays records out over days, zero where a day has no record.
func DailyValues(records []Record, days []string) []DayValue {
	byDay := make(map[string]Record, len(records))
	for _, r := range records {
		if _, seen := byDay[r.Date]; !seen {
			byDay[r.Date] = r
		}
	}

	values := make([]DayValue, len(days))
	for i, day := range days {
		values[i] = DayValue{Day: day, Earnings: decimal.Zero, Minutes: decimal.Zero}
		if r, ok := byDay[day]; ok {
			values[i].Earnings = r.TotalEarnings
			values[i].Minutes = r.AutoMinutes
		}
	}
	return values
}

// DailyMax is the bar chart's Y-axis maximum, never below 1.
func DailyMax(values []DayValue) decimal.Decimal {
	max := one
	for _, v := range values {
		if v.Earnings.GreaterThan(max) {
			max = v.Earnings
		}
	}
	return max
}

// =============================================================================
// SELF STATS
// =============================================================================

// Stats summarises one worker's period.
type Stats struct {
	TotalEarnings decimal.Decimal
	TotalMinutes  decimal.Decimal
	DaysWithData  int
	DaysInPeriod  int
	AvgEarnings   decimal.Decimal // per day with data
	AvgMinutes    decimal.Decimal // per day with data
	// ActivePercent is DaysWithData as a percentage of DaysInPeriod.
	ActivePercent decimal.Decimal
}

// SelfStats sums a worker's records. Averages are zero when there are no
// records.
func SelfStats(records []Record, days []string) Stats {
	s := Stats{
		TotalEarnings: decimal.Zero,
		TotalMinutes:  decimal.Zero,
		AvgEarnings:   decimal.Zero,
		AvgMinutes:    decimal.Zero,
		ActivePercent: decimal.Zero,
		DaysWithData:  len(records),
		DaysInPeriod:  len(days),
	}
	for _, r := range records {
		s.TotalEarnings = s.TotalEarnings.Add(r.TotalEarnings)
		s.TotalMinutes = s.TotalMinutes.Add(r.AutoMinutes)
	}
	if s.DaysWithData > 0 {
		n := decimal.NewFromInt(int64(s.DaysWithData))
		s.AvgEarnings = s.TotalEarnings.Div(n)
		s.AvgMinutes = s.TotalMinutes.Div(n)
	}
	if s.DaysInPeriod > 0 {
		s.ActivePercent = decimal.NewFromInt(int64(s.DaysWithData)).
			Div(decimal.NewFromInt(int64(s.DaysInPeriod))).
			Mul(hundred)
	}
	return s
}

// =============================================================================
// ADJUSTMENT LOG
// =============================================================================

// DefaultRecentAdjustments is how many corrections the leaderboard lists.
const DefaultRecentAdjustments = 5

// RecentAdjustments returns at most n records with a non-zero adjustment,
// newest date first.
func RecentAdjustments(records []Record, n int) []Record {
	var adjusted []Record
	for _, r := range records {
		if r.HasAdjustment() {
			adjusted = append(adjusted, r)
		}
	}
	sort.SliceStable(adjusted, func(a, b int) bool {
		if adjusted[a].Date != adjusted[b].Date {
			return adjusted[a].Date > adjusted[b].Date
		}
		return adjusted[a].Nickname < adjusted[b].Nickname
	})
	if n >= 0 && len(adjusted) > n {
		adjusted = adjusted[:n]
	}
	return adjusted
}
