package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/rolodex/internal/core/domain"
)

var attachCmd = &cobra.Command{
	Use:   "attach [contact-id] [file-or-glob]...",
	Short: "Upload files as attachments of a contact",
	Long: `Upload local files into the contact's attachments folder and record them
on the contact. Patterns support ** to match across directories. A file with
the same name as an existing attachment replaces it.

Examples:
  rolodex attach 000001 ~/scans/card.jpg
  rolodex attach 000001 'notes/**/*.pdf'`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAttach,
}

func init() {
	rootCmd.AddCommand(attachCmd)
}

func runAttach(cmd *cobra.Command, args []string) error {
	paths, err := expandPatterns(args[1:])
	if err != nil {
		return err
	}

	s, _, err := openRepository(cmd)
	if err != nil {
		return err
	}

	added, err := s.Workspace.Attach(cmd.Context(), args[0], paths)
	if len(added) > 0 {
		if rerr := render(cmd, added, func(w io.Writer, st *styles) {
			for _, a := range added {
				fmt.Fprintf(w, "%s %s %s\n", st.Success.Render("Attached"), a.Name, st.Muted.Render(refLink(s, a.Ref)))
			}
		}); rerr != nil {
			return rerr
		}
	}
	if err != nil {
		return fmt.Errorf("failed to attach: %w", err)
	}
	return nil
}

// expandPatterns resolves each argument as a glob, keeping plain paths
// as they are. Directories are skipped and duplicates dropped.
func expandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range patterns {
		matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("%w: bad pattern %q: %w", domain.ErrInvalidInput, p, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(p); err != nil {
				return nil, fmt.Errorf("no files match %q", p)
			}
			matches = []string{p}
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				continue
			}
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no files to attach", domain.ErrInvalidInput)
	}
	return out, nil
}
