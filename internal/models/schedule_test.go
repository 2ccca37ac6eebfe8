package models

import (
	"testing"
	"time"
)

func TestScheduleIsWIP(t *testing.T) {
	wip := Schedule{EventID: "ev"}
	if !wip.IsWIP() {
		t.Error("expected schedule without version to be WIP")
	}
	if wip.String() != "ev@wip" {
		t.Errorf("unexpected label %q", wip.String())
	}

	v1 := Schedule{EventID: "ev", Version: "v1"}
	if v1.IsWIP() {
		t.Error("expected versioned schedule not to be WIP")
	}
	if v1.String() != "ev@v1" {
		t.Errorf("unexpected label %q", v1.String())
	}
}

func TestVisibleOnFreeze(t *testing.T) {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		p    Placement
		sub  *Submission
		want bool
	}{
		{"confirmed", Placement{SubmissionCode: "A", Start: &start}, &Submission{State: StateConfirmed}, true},
		{"accepted", Placement{SubmissionCode: "A", Start: &start}, &Submission{State: StateAccepted}, false},
		{"missing submission", Placement{SubmissionCode: "A", Start: &start}, nil, false},
		{"no start", Placement{SubmissionCode: "A"}, &Submission{State: StateConfirmed}, false},
		{"break slot", Placement{Start: &start}, nil, true},
		{"empty slot", Placement{}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VisibleOnFreeze(tt.p, tt.sub); got != tt.want {
				t.Errorf("VisibleOnFreeze() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSlotKeyUsesLocalTime(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	utc := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	local := utc.In(berlin)
	a := Placement{SubmissionCode: "A", RoomID: "r1", Start: &utc}
	b := Placement{SubmissionCode: "A", RoomID: "r1", Start: &local}

	if a.Key(berlin) != b.Key(berlin) {
		t.Errorf("expected equal keys, got %v and %v", a.Key(berlin), b.Key(berlin))
	}
	if got := a.LocalStart(berlin); got != "2026-03-14T10:00:00" {
		t.Errorf("LocalStart() = %q", got)
	}
}

func TestSlotKeyIgnoresEnd(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	end1 := start.Add(30 * time.Minute)
	end2 := start.Add(45 * time.Minute)

	a := Placement{SubmissionCode: "A", RoomID: "r1", Start: &start, End: &end1}
	b := Placement{SubmissionCode: "A", RoomID: "r1", Start: &start, End: &end2}
	if a.Key(time.UTC) != b.Key(time.UTC) {
		t.Error("expected end time to be ignored")
	}
}

func TestCopyToIsDeep(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	p := Placement{ID: "p1", ScheduleID: "s1", SubmissionCode: "A", RoomID: "r1", Start: &start, IsVisible: true, Seq: 7}

	cp := p.CopyTo("s2")
	if cp.ID != "" || cp.Seq != 0 {
		t.Error("expected copy without identity")
	}
	if cp.ScheduleID != "s2" || cp.SubmissionCode != "A" || !cp.IsVisible {
		t.Errorf("unexpected copy %+v", cp)
	}

	*cp.Start = start.Add(time.Hour)
	if !p.Start.Equal(start) {
		t.Error("copy shares start time with original")
	}
}

func TestEventLocation(t *testing.T) {
	if (Event{}).Location() != time.UTC {
		t.Error("expected UTC fallback for empty timezone")
	}
	if (Event{Timezone: "Not/AZone"}).Location() != time.UTC {
		t.Error("expected UTC fallback for invalid timezone")
	}
}
