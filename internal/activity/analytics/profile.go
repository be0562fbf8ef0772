// Package analytics derives streaks and the activity heatmap from submission history.
package analytics

import (
	"math"
	"time"
)

const (
	// WindowDays is the trailing window the heatmap covers.
	WindowDays = 168
	// Weeks is the number of heatmap columns.
	Weeks = WindowDays / 7

	day = 24 * time.Hour
)

// Heatmap counts submissions per weekday (row 0 is Monday) and week.
// Column 0 is the oldest week and column Weeks-1 the current one.
type Heatmap [7][Weeks]int

// Profile is the activity summary of one account.
type Profile struct {
	CurrentStreak    int     `json:"current_streak"`
	MaxStreak        int     `json:"max_streak"`
	Heatmap          Heatmap `json:"heatmap"`
	MaxStreakChanged bool    `json:"-"`
}

// WindowStart returns the oldest instant that still lands on the heatmap.
func WindowStart(now time.Time) time.Time {
	return now.Add(-WindowDays * day)
}

// ComputeProfile builds the profile from submission dates ordered newest first.
// Dates outside the window do not touch the heatmap but still take part in the streak walk.
func ComputeProfile(now time.Time, dates []time.Time, storedMaxStreak int) Profile {
	var (
		profile  Profile
		cursor   = now
		counting = true
	)
	for _, date := range dates {
		if days := floorDays(now.Sub(date)); days >= 0 && days < WindowDays {
			profile.Heatmap[weekdayRow(date)][days/7]++
		}
		if !counting {
			continue
		}
		switch gap := absInt(floorDays(cursor.Sub(date))); gap {
		case 0:
		case 1:
			profile.CurrentStreak++
			cursor = cursor.Add(-day)
		default:
			counting = false
		}
	}
	for row := range profile.Heatmap {
		reverse(&profile.Heatmap[row])
	}

	profile.MaxStreak = storedMaxStreak
	if profile.CurrentStreak > storedMaxStreak {
		profile.MaxStreak = profile.CurrentStreak
		profile.MaxStreakChanged = true
	}
	return profile
}

// weekdayRow maps Monday to 0 and Sunday to 6.
func weekdayRow(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// floorDays counts whole days in d, rounding toward negative infinity.
func floorDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func reverse(row *[Weeks]int) {
	for i, j := 0, len(row)-1; i < j; i, j = i+1, j-1 {
		row[i], row[j] = row[j], row[i]
	}
}
