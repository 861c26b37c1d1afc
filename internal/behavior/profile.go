package behavior

import (
	"math"
	"sort"
	"time"
)

// Profile is one entity's rolling behavioral baseline. Every check folds
// its own observation into the profile as a final step, so the baseline is
// always "all history up to and including this event".
type Profile struct {
	EntityID          string
	LoginHours        map[int]int
	LoginDays         map[time.Weekday]int
	AccessedResources map[string]int
	TransferSizes     []int64
	SourceIPs         map[string]int
	TotalEvents       int
	CreatedAt         time.Time
	LastUpdated       time.Time
}

func newProfile(entityID string, now time.Time) *Profile {
	return &Profile{
		EntityID:          entityID,
		LoginHours:        make(map[int]int),
		LoginDays:         make(map[time.Weekday]int),
		AccessedResources: make(map[string]int),
		SourceIPs:         make(map[string]int),
		CreatedAt:         now,
		LastUpdated:       now,
	}
}

func (p *Profile) addLogin(ts time.Time, sourceIP string, now time.Time) {
	p.LoginHours[ts.Hour()]++
	p.LoginDays[ts.Weekday()]++
	p.SourceIPs[sourceIP]++
	p.TotalEvents++
	p.LastUpdated = now
}

func (p *Profile) addResourceAccess(resource string, now time.Time) {
	p.AccessedResources[resource]++
	p.TotalEvents++
	p.LastUpdated = now
}

func (p *Profile) addTransfer(sizeBytes int64, now time.Time) {
	p.TransferSizes = append(p.TransferSizes, sizeBytes)
	p.TotalEvents++
	p.LastUpdated = now
}

// NormalLoginHours returns the hours holding at least 10% of historical
// logins, sorted. An empty profile defaults to business hours.
func (p *Profile) NormalLoginHours() []int {
	if len(p.LoginHours) == 0 {
		hours := make([]int, 0, 9)
		for h := 9; h < 18; h++ {
			hours = append(hours, h)
		}
		return hours
	}

	total := 0
	for _, count := range p.LoginHours {
		total += count
	}
	threshold := float64(total) * 0.1

	var hours []int
	for h, count := range p.LoginHours {
		if float64(count) >= threshold {
			hours = append(hours, h)
		}
	}
	sort.Ints(hours)
	return hours
}

// AverageTransferSize returns the mean historical transfer size, defaulting
// to 1MB with no history.
func (p *Profile) AverageTransferSize() float64 {
	if len(p.TransferSizes) == 0 {
		return 1024 * 1024
	}
	var sum float64
	for _, s := range p.TransferSizes {
		sum += float64(s)
	}
	return sum / float64(len(p.TransferSizes))
}

// TransferStdDev returns the population standard deviation of transfer
// sizes. With fewer than two samples it falls back to half the mean.
func (p *Profile) TransferStdDev() float64 {
	if len(p.TransferSizes) < 2 {
		return p.AverageTransferSize() * 0.5
	}

	avg := p.AverageTransferSize()
	var variance float64
	for _, s := range p.TransferSizes {
		d := float64(s) - avg
		variance += d * d
	}
	variance /= float64(len(p.TransferSizes))
	return math.Sqrt(variance)
}
