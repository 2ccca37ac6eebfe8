package models

import "time"

// Event represents a conference whose schedule is versioned
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

// Location returns the event's display timezone, falling back to UTC
func (e Event) Location() *time.Location {
	if e.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Room is a physical or virtual location a placement can occupy
type Room struct {
	ID      string `json:"id"`
	EventID string `json:"event_id"`
	Name    string `json:"name"`
	// SpeakerInfo is shown to speakers whose talk moves into this room,
	// e.g. "ask at registration".
	SpeakerInfo string `json:"speaker_info,omitempty"`
	Position    int    `json:"position"`
}
