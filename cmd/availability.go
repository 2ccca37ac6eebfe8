package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/schedule-context/internal/availability"
)

var (
	availFrom   string
	availTo     string
	availRoom   string
	availPerson string
	availJSON   bool
	availToon   bool
)

var availabilityCmd = &cobra.Command{
	Use:   "availability",
	Short: "Combine availability windows from iCalendar files",
	Long: `Read availability windows from .ics files and combine them.

Recurring entries are expanded within --from and --to.

Examples:
  schedctx availability import speaker.ics --person ada --from 2026-02-01 --to 2026-02-03
  schedctx availability union room-a.ics room-a-extra.ics
  schedctx availability intersect speaker.ics room.ics --json`,
}

var availabilityImportCmd = &cobra.Command{
	Use:   "import <file.ics>",
	Short: "Show the windows of one calendar, tagged with a room or person",
	Args:  cobra.ExactArgs(1),
	RunE:  runAvailabilityImport,
}

var availabilityUnionCmd = &cobra.Command{
	Use:   "union <file.ics>...",
	Short: "Merge the windows of all calendars into a minimal cover",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAvailabilityUnion,
}

var availabilityIntersectCmd = &cobra.Command{
	Use:   "intersect <file.ics> <file.ics>...",
	Short: "Show the windows every calendar shares",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAvailabilityIntersect,
}

func init() {
	rootCmd.AddCommand(availabilityCmd)
	availabilityCmd.AddCommand(availabilityImportCmd, availabilityUnionCmd, availabilityIntersectCmd)

	availabilityCmd.PersistentFlags().StringVar(&availFrom, "from", "", "Start of the expansion window (YYYY-MM-DD)")
	availabilityCmd.PersistentFlags().StringVar(&availTo, "to", "", "End of the expansion window (YYYY-MM-DD)")
	availabilityCmd.PersistentFlags().BoolVar(&availJSON, "json", false, "Output as JSON")
	availabilityCmd.PersistentFlags().BoolVar(&availToon, "toon", false, "Output in LLM-friendly toon format")

	availabilityImportCmd.Flags().StringVar(&availRoom, "room", "", "Room ID to tag windows with")
	availabilityImportCmd.Flags().StringVar(&availPerson, "person", "", "Person ID to tag windows with")
}

func importOptions() (availability.ImportOptions, error) {
	opts := availability.ImportOptions{RoomID: availRoom, PersonID: availPerson}
	if availFrom != "" {
		t, err := time.Parse("2006-01-02", availFrom)
		if err != nil {
			return opts, fmt.Errorf("invalid --from date format (use YYYY-MM-DD): %w", err)
		}
		opts.From = t
	}
	if availTo != "" {
		t, err := time.Parse("2006-01-02", availTo)
		if err != nil {
			return opts, fmt.Errorf("invalid --to date format (use YYYY-MM-DD): %w", err)
		}
		opts.To = t
	}
	return opts, nil
}

func readCalendar(path string, opts availability.ImportOptions) ([]availability.Availability, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	avs, err := availability.ImportICS(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return avs, nil
}

func runAvailabilityImport(cmd *cobra.Command, args []string) error {
	opts, err := importOptions()
	if err != nil {
		return err
	}
	avs, err := readCalendar(args[0], opts)
	if err != nil {
		return err
	}
	return printAvailability(avs)
}

func runAvailabilityUnion(cmd *cobra.Command, args []string) error {
	opts, err := importOptions()
	if err != nil {
		return err
	}

	var all []availability.Availability
	for _, path := range args {
		avs, err := readCalendar(path, opts)
		if err != nil {
			return err
		}
		all = append(all, avs...)
	}
	return printAvailability(availability.Union(all))
}

func runAvailabilityIntersect(cmd *cobra.Command, args []string) error {
	opts, err := importOptions()
	if err != nil {
		return err
	}

	sets := make([][]availability.Availability, 0, len(args))
	for _, path := range args {
		avs, err := readCalendar(path, opts)
		if err != nil {
			return err
		}
		sets = append(sets, avs)
	}
	return printAvailability(availability.Intersection(sets...))
}

func printAvailability(avs []availability.Availability) error {
	if done, err := printStructured(avs, availJSON, availToon); done {
		return err
	}

	if len(avs) == 0 {
		fmt.Println("No availability")
		return nil
	}
	for _, av := range avs {
		line := av.String()
		if av.AllDay() {
			line += " all day"
		}
		if av.RoomID != "" {
			line += " room=" + av.RoomID
		}
		if av.PersonID != "" {
			line += " person=" + av.PersonID
		}
		fmt.Println(line)
	}
	return nil
}
