package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/schedule-context/internal/config"
	"github.com/pders01/schedule-context/internal/models"
)

var (
	eventName     string
	eventTimezone string

	roomID   string
	roomInfo string

	submissionTitle    string
	submissionState    string
	submissionSpeakers []string
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Manage events",
}

var eventCreateCmd = &cobra.Command{
	Use:   "create <event-id>",
	Short: "Create an event with an empty WIP schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventCreate,
}

var roomCmd = &cobra.Command{
	Use:   "room",
	Short: "Manage rooms",
}

var roomAddCmd = &cobra.Command{
	Use:   "add <event-id> <name>",
	Short: "Add a room to an event",
	Long: `Add a room to an event.

Examples:
  schedctx room add fosdem "Main Hall"
  schedctx room add fosdem "Room B" --id b --info "take the stairs"`,
	Args: cobra.ExactArgs(2),
	RunE: runRoomAdd,
}

var submissionCmd = &cobra.Command{
	Use:   "submission",
	Short: "Manage submissions",
}

var submissionAddCmd = &cobra.Command{
	Use:   "add <event-id> <code>",
	Short: "Create or update a submission",
	Long: `Create or update a submission.

Only confirmed submissions become visible when a schedule is frozen.

Examples:
  schedctx submission add fosdem ABC123 --title "Go at scale" --state confirmed --speaker ada`,
	Args: cobra.ExactArgs(2),
	RunE: runSubmissionAdd,
}

func init() {
	rootCmd.AddCommand(eventCmd, roomCmd, submissionCmd)
	eventCmd.AddCommand(eventCreateCmd)
	roomCmd.AddCommand(roomAddCmd)
	submissionCmd.AddCommand(submissionAddCmd)

	eventCreateCmd.Flags().StringVar(&eventName, "name", "", "Display name")
	eventCreateCmd.Flags().StringVar(&eventTimezone, "timezone", "", "IANA timezone (default from event.timezone)")

	roomAddCmd.Flags().StringVar(&roomID, "id", "", "Room ID (generated if empty)")
	roomAddCmd.Flags().StringVar(&roomInfo, "info", "", "Information for speakers moved into this room")

	submissionAddCmd.Flags().StringVar(&submissionTitle, "title", "", "Talk title")
	submissionAddCmd.Flags().StringVar(&submissionState, "state", string(models.StateSubmitted), "Review state")
	submissionAddCmd.Flags().StringSliceVar(&submissionSpeakers, "speaker", nil, "Speaker (repeatable)")
}

func runEventCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tz := eventTimezone
	if tz == "" {
		tz = config.GetEventTimezone()
	}
	ev := models.Event{ID: args[0], Name: eventName, Timezone: tz}
	if ev.Name == "" {
		ev.Name = ev.ID
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	ev, wip, err := a.engine.CreateEvent(context.Background(), ev)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	fmt.Printf("✓ Created event: %s (%s)\n", ev.ID, ev.Timezone)
	fmt.Printf("  WIP schedule: %s\n", wip.ID)
	return nil
}

func runRoomAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	room, err := a.engine.AddRoom(context.Background(), models.Room{
		ID:          roomID,
		EventID:     args[0],
		Name:        args[1],
		SpeakerInfo: roomInfo,
	})
	if err != nil {
		return fmt.Errorf("failed to add room: %w", err)
	}

	fmt.Printf("✓ Added room: %s (%s)\n", room.Name, room.ID)
	return nil
}

func runSubmissionAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sub := models.Submission{
		Code:     args[1],
		EventID:  args[0],
		Title:    submissionTitle,
		State:    models.SubmissionState(submissionState),
		Speakers: submissionSpeakers,
	}
	if err := a.engine.PutSubmission(context.Background(), sub); err != nil {
		return fmt.Errorf("failed to store submission: %w", err)
	}

	fmt.Printf("✓ Stored submission: %s (%s)\n", sub.Code, sub.State)
	return nil
}
