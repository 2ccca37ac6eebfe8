package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/schedule-context/internal/diff"
	"github.com/pders01/schedule-context/internal/models"
)

var (
	changesJSON bool
	changesToon bool

	versionsJSON bool
	versionsToon bool
)

var changesCmd = &cobra.Command{
	Use:   "changes <event-id> [version]",
	Short: "Show what a schedule changed against its previous release",
	Long: `Show new, canceled and moved talks of a schedule compared with the
release before it. Without a version the WIP is shown, i.e. what would be
published by the next freeze.

Examples:
  schedctx changes fosdem
  schedctx changes fosdem v2 --json
  schedctx changes fosdem latest --toon`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runChanges,
}

var versionsCmd = &cobra.Command{
	Use:   "versions <event-id>",
	Short: "List the releases of an event, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersions,
}

var unreleasedCmd = &cobra.Command{
	Use:   "unreleased <event-id>",
	Short: "Report whether the WIP holds unreleased changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnreleased,
}

func init() {
	rootCmd.AddCommand(changesCmd, versionsCmd, unreleasedCmd)

	changesCmd.Flags().BoolVar(&changesJSON, "json", false, "Output as JSON")
	changesCmd.Flags().BoolVar(&changesToon, "toon", false, "Output in LLM-friendly toon format")

	versionsCmd.Flags().BoolVar(&versionsJSON, "json", false, "Output as JSON")
	versionsCmd.Flags().BoolVar(&versionsToon, "toon", false, "Output in LLM-friendly toon format")
}

type changesView struct {
	Event    string     `json:"event"`
	Version  string     `json:"version"`
	Action   string     `json:"action"`
	Count    int        `json:"count"`
	New      []talkView `json:"new_talks"`
	Canceled []talkView `json:"canceled_talks"`
	Moved    []moveView `json:"moved_talks"`
}

type talkView struct {
	Submission string `json:"submission"`
	Title      string `json:"title,omitempty"`
	Room       string `json:"room"`
	Start      string `json:"start"`
}

type moveView struct {
	Submission string `json:"submission"`
	Title      string `json:"title,omitempty"`
	OldRoom    string `json:"old_room"`
	NewRoom    string `json:"new_room"`
	OldStart   string `json:"old_start"`
	NewStart   string `json:"new_start"`
	Info       string `json:"info,omitempty"`
}

func runChanges(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	version := ""
	if len(args) == 2 {
		version = args[1]
	}

	ctx := context.Background()
	sc, err := a.engine.Resolve(ctx, args[0], version)
	if err != nil {
		return err
	}
	res, err := a.cache.GetCachedDiff(ctx, sc)
	if err != nil {
		return err
	}
	view, err := buildChangesView(ctx, a, sc, res)
	if err != nil {
		return err
	}

	if done, err := printStructured(view, changesJSON, changesToon); done {
		return err
	}

	label := sc.Version
	if sc.IsWIP() {
		label = "WIP"
	}
	if res.Action == diff.ActionCreate {
		fmt.Printf("%s is the first release of %s\n", label, sc.EventID)
		return nil
	}
	if !res.HasChanges() {
		fmt.Printf("%s: no changes\n", label)
		return nil
	}

	fmt.Printf("%s: %d change(s)\n\n", label, res.Count)
	for _, t := range view.New {
		fmt.Printf("  + %-10s %s  %s  %s\n", t.Submission, t.Start, t.Room, t.Title)
	}
	for _, t := range view.Canceled {
		fmt.Printf("  - %-10s %s  %s  %s\n", t.Submission, t.Start, t.Room, t.Title)
	}
	for _, m := range view.Moved {
		fmt.Printf("  ~ %-10s %s %s -> %s %s\n", m.Submission, m.OldStart, m.OldRoom, m.NewStart, m.NewRoom)
		if m.Info != "" {
			fmt.Printf("               %s\n", m.Info)
		}
	}
	return nil
}

func buildChangesView(ctx context.Context, a *app, sc models.Schedule, res *diff.Result) (changesView, error) {
	ev, err := a.store.Event(ctx, sc.EventID)
	if err != nil {
		return changesView{}, err
	}
	rooms, err := a.store.Rooms(ctx, sc.EventID)
	if err != nil {
		return changesView{}, err
	}
	subs, err := a.store.Submissions(ctx, sc.EventID)
	if err != nil {
		return changesView{}, err
	}
	loc := ev.Location()

	roomName := func(id string) string {
		if r, ok := rooms[id]; ok {
			return r.Name
		}
		return id
	}
	when := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.In(loc).Format("2006-01-02 15:04")
	}
	talks := func(ps []models.Placement) []talkView {
		out := make([]talkView, 0, len(ps))
		for _, p := range ps {
			out = append(out, talkView{
				Submission: p.SubmissionCode,
				Title:      subs[p.SubmissionCode].Title,
				Room:       roomName(p.RoomID),
				Start:      when(p.Start),
			})
		}
		return out
	}

	view := changesView{
		Event:    sc.EventID,
		Version:  sc.Version,
		Action:   string(res.Action),
		Count:    res.Count,
		New:      talks(res.NewTalks),
		Canceled: talks(res.CanceledTalks),
		Moved:    make([]moveView, 0, len(res.MovedTalks)),
	}
	if sc.IsWIP() {
		view.Version = "wip"
	}
	for _, m := range res.MovedTalks {
		view.Moved = append(view.Moved, moveView{
			Submission: m.Submission,
			Title:      subs[m.Submission].Title,
			OldRoom:    roomName(m.OldRoom),
			NewRoom:    roomName(m.NewRoom),
			OldStart:   when(m.OldStart),
			NewStart:   when(m.NewStart),
			Info:       m.NewInfo,
		})
	}
	return view, nil
}

type versionView struct {
	Version   string    `json:"version"`
	Published time.Time `json:"published"`
	Comment   string    `json:"comment,omitempty"`
	Changes   int       `json:"changes"`
}

func runVersions(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	versions, err := a.engine.Versions(ctx, args[0])
	if err != nil {
		return err
	}

	views := make([]versionView, 0, len(versions))
	for _, sc := range versions {
		res, err := a.cache.GetCachedDiff(ctx, sc)
		if err != nil {
			return err
		}
		views = append(views, versionView{
			Version:   sc.Version,
			Published: *sc.Published,
			Comment:   sc.Comment,
			Changes:   res.Count,
		})
	}

	if done, err := printStructured(views, versionsJSON, versionsToon); done {
		return err
	}

	if len(views) == 0 {
		fmt.Println("No releases found")
		return nil
	}

	fmt.Printf("Found %d release(s):\n\n", len(views))
	for _, v := range views {
		fmt.Printf("  %s\n", v.Version)
		fmt.Printf("    Published: %s\n", v.Published.Format("2006-01-02 15:04"))
		fmt.Printf("    Changes:   %d\n", v.Changes)
		if v.Comment != "" {
			fmt.Printf("    Comment:   %s\n", v.Comment)
		}
		fmt.Println()
	}
	return nil
}

func runUnreleased(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	unreleased, err := a.cache.HasUnreleasedChanges(context.Background(), args[0])
	if err != nil {
		return err
	}
	if unreleased {
		fmt.Println("WIP has unreleased changes")
	} else {
		fmt.Println("WIP matches the latest release")
	}
	return nil
}
