// Package availability implements an algebra over [start, end) time ranges
// used for room and speaker availability windows.
package availability

import (
	"fmt"
	"sort"
	"time"
)

// Availability is an immutable [Start, End) time range, optionally tagged with
// the room or person it belongs to. The tags are informative only: equality and
// all algebraic operations look at the bounds alone.
type Availability struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	RoomID   string    `json:"room_id,omitempty"`
	PersonID string    `json:"person_id,omitempty"`
}

// NonOverlappingRangeError is returned when merging or intersecting two ranges
// that do not touch. It signals a caller bug.
type NonOverlappingRangeError struct {
	Op   string
	A, B Availability
}

func (e *NonOverlappingRangeError) Error() string {
	return fmt.Sprintf("cannot %s non-overlapping ranges %s and %s", e.Op, e.A, e.B)
}

// New returns an untagged range
func New(start, end time.Time) Availability {
	return Availability{Start: start, End: end}
}

func (a Availability) String() string {
	return fmt.Sprintf("[%s, %s)", a.Start.Format(time.RFC3339), a.End.Format(time.RFC3339))
}

// Key is the hashable identity of a range
type Key struct {
	Start, End int64
}

// Key returns the range identity; tags are ignored
func (a Availability) Key() Key {
	return Key{Start: a.Start.UnixNano(), End: a.End.UnixNano()}
}

// Equal reports whether both ranges have identical bounds
func (a Availability) Equal(b Availability) bool {
	return a.Start.Equal(b.Start) && a.End.Equal(b.End)
}

// Overlaps reports whether a and b share time. In strict mode touching
// endpoints do not count.
func (a Availability) Overlaps(b Availability, strict bool) bool {
	if strict {
		return a.Start.Before(b.End) && b.Start.Before(a.End)
	}
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}

// Contains reports whether b lies entirely within a
func (a Availability) Contains(b Availability) bool {
	return !b.Start.Before(a.Start) && !a.End.Before(b.End)
}

// MergeWith returns the convex union of two touching or overlapping ranges
func (a Availability) MergeWith(b Availability) (Availability, error) {
	if !a.Overlaps(b, false) {
		return Availability{}, &NonOverlappingRangeError{Op: "merge", A: a, B: b}
	}
	return New(earliest(a.Start, b.Start), latest(a.End, b.End)), nil
}

// IntersectWith returns the common part of two touching or overlapping ranges
func (a Availability) IntersectWith(b Availability) (Availability, error) {
	if !a.Overlaps(b, false) {
		return Availability{}, &NonOverlappingRangeError{Op: "intersect", A: a, B: b}
	}
	return New(latest(a.Start, b.Start), earliest(a.End, b.End)), nil
}

// AllDay reports whether the range runs from midnight to midnight in its own
// timezone, possibly over several days.
func (a Availability) AllDay() bool {
	return isMidnight(a.Start) && isMidnight(a.End) && a.End.After(a.Start)
}

// Union returns the minimal sorted cover of avs: ranges that touch or overlap
// are merged, the rest are kept as they are.
func Union(avs []Availability) []Availability {
	if len(avs) == 0 {
		return []Availability{}
	}

	sorted := make([]Availability, len(avs))
	copy(sorted, avs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	result := []Availability{sorted[0]}
	for _, av := range sorted[1:] {
		last := result[len(result)-1]
		if av.Overlaps(last, false) {
			// Overlap was just checked, MergeWith cannot fail here.
			merged, _ := last.MergeWith(av)
			result[len(result)-1] = merged
			continue
		}
		result = append(result, av)
	}
	return result
}

// Intersection returns the time covered by every one of the given sets.
// Each set is normalised with Union first; more than two sets are folded
// left to right.
func Intersection(sets ...[]Availability) []Availability {
	if len(sets) == 0 {
		return []Availability{}
	}

	result := Union(sets[0])
	for _, set := range sets[1:] {
		result = pairIntersection(result, Union(set))
	}
	return result
}

// pairIntersection cross-compares two normalised sets, keeping strictly
// overlapping intersections only.
func pairIntersection(as, bs []Availability) []Availability {
	result := []Availability{}
	for _, a := range as {
		for _, b := range bs {
			if !a.Overlaps(b, true) {
				continue
			}
			in, _ := a.IntersectWith(b)
			result = append(result, in)
		}
	}
	return result
}

func isMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

func earliest(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
