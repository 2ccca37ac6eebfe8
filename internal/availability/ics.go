package availability

import (
	"errors"
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
)

// ImportOptions controls how calendar entries become availabilities
type ImportOptions struct {
	RoomID   string
	PersonID string

	// From and To bound the expansion of recurring entries. Non-recurring
	// entries are imported regardless of the window.
	From time.Time
	To   time.Time
}

// ImportICS reads VEVENTs from an iCalendar stream and returns them as
// availabilities, tagged per opts and normalised with Union.
func ImportICS(r io.Reader, opts ImportOptions) ([]Availability, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}

	var out []Availability
	for _, ve := range cal.Events() {
		av, err := eventRange(ve)
		if err != nil {
			// Entries without usable bounds carry no availability.
			continue
		}
		av.RoomID = opts.RoomID
		av.PersonID = opts.PersonID

		prop := ve.GetProperty(ical.ComponentPropertyRrule)
		if prop == nil || prop.Value == "" {
			out = append(out, av)
			continue
		}
		if opts.To.IsZero() || !opts.To.After(opts.From) {
			return nil, errors.New("recurring entries need an import window")
		}
		expanded, err := Expand(prop.Value, av, opts.From, opts.To)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return tagged(Union(out), opts), nil
}

func eventRange(ve *ical.VEvent) (Availability, error) {
	start, err := ve.GetStartAt()
	if err != nil {
		if start, err = ve.GetAllDayStartAt(); err != nil {
			return Availability{}, err
		}
	}
	end, err := ve.GetEndAt()
	if err != nil {
		if end, err = ve.GetAllDayEndAt(); err != nil {
			return Availability{}, err
		}
	}
	if !end.After(start) {
		return Availability{}, fmt.Errorf("event ends before it starts")
	}
	return New(start, end), nil
}

// tagged reapplies owner tags, which merging drops
func tagged(avs []Availability, opts ImportOptions) []Availability {
	for i := range avs {
		avs[i].RoomID = opts.RoomID
		avs[i].PersonID = opts.PersonID
	}
	return avs
}
