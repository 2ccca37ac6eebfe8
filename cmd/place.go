package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/schedule-context/internal/models"
)

var (
	placeRoom  string
	placeStart string
	placeEnd   string
)

var placeCmd = &cobra.Command{
	Use:   "place <event-id> [submission-code]",
	Short: "Place a submission in the WIP schedule",
	Long: `Add a slot to the event's WIP schedule.

Times are RFC 3339 or "YYYY-MM-DDTHH:MM" in the event's timezone. A slot
without a submission is a break.

Examples:
  schedctx place fosdem ABC123 --room main --start 2026-02-01T10:00 --end 2026-02-01T10:45
  schedctx place fosdem --room main --start 2026-02-01T12:00 --end 2026-02-01T13:00`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPlace,
}

func init() {
	rootCmd.AddCommand(placeCmd)

	placeCmd.Flags().StringVar(&placeRoom, "room", "", "Room ID")
	placeCmd.Flags().StringVar(&placeStart, "start", "", "Start time")
	placeCmd.Flags().StringVar(&placeEnd, "end", "", "End time")
}

func runPlace(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	ev, err := a.store.Event(ctx, args[0])
	if err != nil {
		return err
	}
	loc := ev.Location()

	p := models.Placement{RoomID: placeRoom}
	if len(args) == 2 {
		p.SubmissionCode = args[1]
	}
	if p.Start, err = parseTime(placeStart, loc); err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	if p.End, err = parseTime(placeEnd, loc); err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}

	added, err := a.engine.Place(ctx, ev.ID, p)
	if err != nil {
		return fmt.Errorf("failed to place: %w", err)
	}

	label := added.SubmissionCode
	if label == "" {
		label = "(break)"
	}
	fmt.Printf("✓ Placed %s: %s\n", label, added.ID)
	if added.Start != nil {
		fmt.Printf("  Room: %s  Start: %s\n", added.RoomID, added.Start.In(loc).Format("2006-01-02 15:04"))
	}
	return nil
}

// parseTime accepts RFC 3339 or a wall-clock time in loc. Empty is nil.
func parseTime(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04", s, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
