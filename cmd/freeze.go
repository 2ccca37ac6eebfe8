package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pders01/schedule-context/internal/schedule"
)

var (
	freezeComment string
	freezeNotify  bool
	actingUser    string
)

var freezeCmd = &cobra.Command{
	Use:   "freeze <event-id> <version>",
	Short: "Release the WIP schedule under a version name",
	Long: `Freeze the event's WIP schedule into an immutable, named release.

Only confirmed talks with a start time become visible. A new WIP holding a
copy of every slot is created in the same transaction.

Examples:
  schedctx freeze fosdem v1
  schedctx freeze fosdem v2 --comment "moved keynote" --notify`,
	Args: cobra.ExactArgs(2),
	RunE: runFreeze,
}

var unfreezeCmd = &cobra.Command{
	Use:   "unfreeze <event-id> <version>",
	Short: "Restore a release into a new WIP schedule",
	Long: `Replace the WIP schedule with the slots of a release.

WIP slots of talks the release does not contain are kept. The release
itself is not changed.

Examples:
  schedctx unfreeze fosdem v1`,
	Args: cobra.ExactArgs(2),
	RunE: runUnfreeze,
}

func init() {
	rootCmd.AddCommand(freezeCmd, unfreezeCmd)

	freezeCmd.Flags().StringVar(&freezeComment, "comment", "", "Release comment")
	freezeCmd.Flags().BoolVar(&freezeNotify, "notify", false, "Notify speakers of changed talks")
	for _, c := range []*cobra.Command{freezeCmd, unfreezeCmd} {
		c.Flags().StringVar(&actingUser, "user", os.Getenv("USER"), "Acting user")
	}
}

func runFreeze(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	wip, err := a.store.WIP(ctx, args[0])
	if err != nil {
		return err
	}

	frozen, next, err := a.engine.Freeze(ctx, wip, args[1], actingUser, freezeNotify, freezeComment)
	switch {
	case errors.Is(err, schedule.ErrInvalidVersionName):
		return fmt.Errorf("cannot use version name %q: %w", args[1], err)
	case err != nil:
		return fmt.Errorf("failed to freeze: %w", err)
	}

	fmt.Printf("✓ Released %s\n", frozen)
	fmt.Printf("  Published: %s\n", frozen.Published.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  New WIP:   %s\n", next.ID)
	return nil
}

func runUnfreeze(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	target, err := a.engine.Resolve(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	restored, next, err := a.engine.Unfreeze(ctx, target, actingUser)
	if err != nil {
		return fmt.Errorf("failed to unfreeze: %w", err)
	}

	fmt.Printf("✓ Restored %s into a new WIP: %s\n", restored, next.ID)
	return nil
}
