package store

import "fmt"

var (
	seqKey      = []byte("seq/placement")
	eventPrefix = []byte("ev/")
)

func eventKey(eventID string) []byte {
	return []byte("ev/" + eventID)
}

func scheduleKey(eventID, scheduleID string) []byte {
	return []byte("sc/" + eventID + "/" + scheduleID)
}

func schedulePrefix(eventID string) []byte {
	return []byte("sc/" + eventID + "/")
}

func wipKey(eventID string) []byte {
	return []byte("wip/" + eventID)
}

// placementKey orders placements of one schedule by creation sequence
func placementKey(scheduleID string, seq uint64, placementID string) []byte {
	return []byte(fmt.Sprintf("pl/%s/%020d/%s", scheduleID, seq, placementID))
}

func placementPrefix(scheduleID string) []byte {
	return []byte("pl/" + scheduleID + "/")
}

// revisionKey changes whenever a placement is added to the schedule.
// Readers of a schedule's placements also read it, so a concurrent insert
// conflicts with them on commit.
func revisionKey(scheduleID string) []byte {
	return []byte("rev/" + scheduleID)
}

func placementIndexKey(placementID string) []byte {
	return []byte("pid/" + placementID)
}

func submissionKey(eventID, code string) []byte {
	return []byte("sub/" + eventID + "/" + code)
}

func submissionPrefix(eventID string) []byte {
	return []byte("sub/" + eventID + "/")
}

func roomKey(eventID, roomID string) []byte {
	return []byte("room/" + eventID + "/" + roomID)
}

func roomPrefix(eventID string) []byte {
	return []byte("room/" + eventID + "/")
}
