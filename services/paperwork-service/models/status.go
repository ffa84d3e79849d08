package models

import "sort"

// DeriveStatus computes the paperwork status from its two ledgers. It is the
// only source of status; nothing stores it.
func DeriveStatus(latest *Version, latestReview *Review) Status {
	if latest == nil {
		return StatusAssigned
	}
	if latestReview == nil || latestReview.VersionNumber != latest.Number {
		return StatusSubmitted
	}
	return latestReview.Decision.Status()
}

// Event is one entry of a paperwork's merged ledger history.
type Event struct {
	Version *Version
	Review  *Review
}

// History merges both ledgers into recording order. A review always follows
// the version it targets and precedes the next version.
func History(versions []*Version, reviews []*Review) []Event {
	events := make([]Event, 0, len(versions)+len(reviews))
	for _, v := range versions {
		events = append(events, Event{Version: v})
	}
	for _, r := range reviews {
		events = append(events, Event{Review: r})
	}
	sort.SliceStable(events, func(i, j int) bool {
		ni, nj := events[i].number(), events[j].number()
		if ni != nj {
			return ni < nj
		}
		if (events[i].Version != nil) != (events[j].Version != nil) {
			return events[i].Version != nil
		}
		if events[i].Review != nil && events[j].Review != nil {
			return events[i].Review.Sequence < events[j].Review.Sequence
		}
		return false
	})
	return events
}

func (e Event) number() int {
	if e.Version != nil {
		return e.Version.Number
	}
	return e.Review.VersionNumber
}

// ReplayStatus folds a full event history starting from the empty state.
func ReplayStatus(events []Event) Status {
	status := StatusAssigned
	for _, ev := range events {
		switch {
		case ev.Version != nil:
			status = StatusSubmitted
		case ev.Review != nil:
			status = ev.Review.Decision.Status()
		}
	}
	return status
}

// LatestVersion returns the highest-numbered version or nil.
func LatestVersion(versions []*Version) *Version {
	var latest *Version
	for _, v := range versions {
		if latest == nil || v.Number > latest.Number {
			latest = v
		}
	}
	return latest
}

// LatestReview returns the most recently recorded review or nil.
func LatestReview(reviews []*Review) *Review {
	var latest *Review
	for _, r := range reviews {
		if latest == nil || r.Sequence > latest.Sequence {
			latest = r
		}
	}
	return latest
}
