package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the folder layout in the store",
	Long: `Create the root folder with its index, contacts, meetings and attachments
subfolders, and write empty index files. Existing folders are reused, so
running init again is harmless.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	s, err := currentSession(cmd)
	if err != nil {
		return err
	}

	structure, err := s.Workspace.Init(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to initialise: %w", err)
	}

	return render(cmd, structure, func(w io.Writer, st *styles) {
		fmt.Fprintf(w, "%s %s (%s)\n", st.Success.Render("Initialised"),
			s.Settings.Storage.RootFolder, s.Settings.Storage.Backend)
		st.field(w, "Root", structure.Root)
		st.field(w, "Index", structure.Index)
		st.field(w, "Contacts", structure.Contacts)
		st.field(w, "Meetings", structure.Meetings)
		st.field(w, "Attachments", structure.Attachments)
	})
}
