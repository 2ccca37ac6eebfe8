package models

import (
	"fmt"
	"time"
)

// Schedule is one snapshot of an event's schedule. A schedule without a
// version is the event's single mutable work-in-progress (WIP) snapshot.
type Schedule struct {
	ID        string     `json:"id"`
	EventID   string     `json:"event_id"`
	Version   string     `json:"version,omitempty"`
	Published *time.Time `json:"published,omitempty"`
	Comment   string     `json:"comment,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsWIP reports whether the schedule is the mutable work-in-progress snapshot
func (s Schedule) IsWIP() bool {
	return s.Version == ""
}

// String returns a human-readable label
func (s Schedule) String() string {
	if s.IsWIP() {
		return fmt.Sprintf("%s@wip", s.EventID)
	}
	return fmt.Sprintf("%s@%s", s.EventID, s.Version)
}

// Placement assigns a submission to a room and time within one schedule.
// Submission, room and times are optional: an empty placement is a booked
// but unassigned slot.
type Placement struct {
	ID             string     `json:"id"`
	ScheduleID     string     `json:"schedule_id"`
	SubmissionCode string     `json:"submission_code,omitempty"`
	RoomID         string     `json:"room_id,omitempty"`
	Start          *time.Time `json:"start,omitempty"`
	End            *time.Time `json:"end,omitempty"`
	IsVisible      bool       `json:"is_visible"`

	// Seq is the creation order within the store. Listings are ordered by it.
	Seq uint64 `json:"seq"`
}

// IsScheduled reports whether the placement holds a submission in a room at a time
func (p Placement) IsScheduled() bool {
	return p.SubmissionCode != "" && p.RoomID != "" && p.Start != nil
}

// LocalStart returns the wall-clock start time in loc, formatted without
// a zone. "The same slot" is a displayed-time concept, so comparisons use this.
func (p Placement) LocalStart(loc *time.Location) string {
	if p.Start == nil {
		return ""
	}
	return p.Start.In(loc).Format("2006-01-02T15:04:05")
}

// SlotKey identifies a placement by submission, room and local start time,
// ignoring end time and duration.
type SlotKey struct {
	Submission string
	Room       string
	Start      string
}

// Key returns the placement's slot identity in loc
func (p Placement) Key(loc *time.Location) SlotKey {
	return SlotKey{
		Submission: p.SubmissionCode,
		Room:       p.RoomID,
		Start:      p.LocalStart(loc),
	}
}

// CopyTo returns a copy of the placement for another schedule, without
// identity. The store assigns a fresh ID and Seq.
func (p Placement) CopyTo(scheduleID string) Placement {
	cp := Placement{
		ScheduleID:     scheduleID,
		SubmissionCode: p.SubmissionCode,
		RoomID:         p.RoomID,
		IsVisible:      p.IsVisible,
	}
	if p.Start != nil {
		t := *p.Start
		cp.Start = &t
	}
	if p.End != nil {
		t := *p.End
		cp.End = &t
	}
	return cp
}

// VisibleOnFreeze returns the visibility a placement receives when its schedule
// is frozen: confirmed (or no) submission and a start time.
func VisibleOnFreeze(p Placement, sub *Submission) bool {
	if p.Start == nil {
		return false
	}
	if p.SubmissionCode == "" {
		return true
	}
	return sub != nil && sub.State == StateConfirmed
}
