package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rolodex/internal/logger"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Maintain the index files",
	Long: `The index files list every contact and meetings file with its modification
time. They are rebuilt after every save and can always be regenerated from
the folder contents.`,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Regenerate the index files from the folder contents",
	Args:  cobra.NoArgs,
	RunE:  runIndexRebuild,
}

var indexWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the index files whenever data files change",
	Long: `Watch the contacts and meetings folders and rebuild the index files after
each burst of changes. The local backend is notified by the filesystem;
Google Drive folders are polled. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runIndexWatch,
}

func init() {
	indexCmd.AddCommand(indexRebuildCmd)
	indexCmd.AddCommand(indexWatchCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexRebuild(cmd *cobra.Command, _ []string) error {
	s, err := currentSession(cmd)
	if err != nil {
		return err
	}
	if err := s.Workspace.RebuildIndexes(cmd.Context()); err != nil {
		return fmt.Errorf("failed to rebuild indexes: %w", err)
	}
	cmd.Println("Index files rebuilt.")
	return nil
}

func runIndexWatch(cmd *cobra.Command, _ []string) error {
	s, err := currentSession(cmd)
	if err != nil {
		return err
	}
	if s.Watch == nil {
		return fmt.Errorf("the %s backend cannot report changes", s.Settings.Storage.Backend)
	}

	ctx := cmd.Context()
	if err := s.Workspace.RebuildIndexes(ctx); err != nil {
		return fmt.Errorf("failed to rebuild indexes: %w", err)
	}
	st := s.Workspace.Structure()

	cmd.Println("Watching for changes. Press Ctrl-C to stop.")
	err = s.Watch(ctx, []string{st.Contacts, st.Meetings}, func(ctx context.Context, changed []string) error {
		logger.Debug("%d files changed", len(changed))
		if err := s.Workspace.RebuildIndexes(ctx); err != nil {
			return err
		}
		cmd.Printf("Rebuilt indexes after %d change(s)\n", len(changed))
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
