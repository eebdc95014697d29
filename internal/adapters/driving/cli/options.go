package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rolodex/internal/core/domain"
)

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Manage tag options",
	Long: `Manage the tag options offered for contact types, affiliations and
industry interests.

Kinds: types, affiliations, industryInterests.`,
}

var optionsListCmd = &cobra.Command{
	Use:   "list [kind]",
	Short: "List tag options",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runOptionsList,
}

var optionsAddCmd = &cobra.Command{
	Use:   "add [kind] [value]...",
	Short: "Add tag options",
	Long: `Add tag options. Values that differ from an existing option only in case,
width or spacing are not added again.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runOptionsAdd,
}

var optionsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove options no contact uses",
	Args:  cobra.NoArgs,
	RunE:  runOptionsCleanup,
}

func init() {
	optionsCmd.AddCommand(optionsListCmd)
	optionsCmd.AddCommand(optionsAddCmd)
	optionsCmd.AddCommand(optionsCleanupCmd)
	rootCmd.AddCommand(optionsCmd)
}

func parseOptionKind(arg string) (domain.OptionKind, error) {
	for _, k := range domain.OptionKinds {
		if strings.EqualFold(arg, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown option kind %q (use types, affiliations or industryInterests)",
		domain.ErrInvalidInput, arg)
}

func runOptionsList(cmd *cobra.Command, args []string) error {
	kinds := domain.OptionKinds
	if len(args) == 1 {
		k, err := parseOptionKind(args[0])
		if err != nil {
			return err
		}
		kinds = []domain.OptionKind{k}
	}

	_, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}
	opts := repo.Options()

	out := make(map[string][]string, len(kinds))
	for _, k := range kinds {
		values := opts.Values(k)
		if values == nil {
			values = []string{}
		}
		out[string(k)] = values
	}

	return render(cmd, out, func(w io.Writer, st *styles) {
		for _, k := range kinds {
			fmt.Fprintln(w, st.Title.Render(k.String()))
			values := out[string(k)]
			if len(values) == 0 {
				fmt.Fprintln(w, st.Muted.Render("  (none)"))
			}
			for _, v := range values {
				fmt.Fprintf(w, "  %s\n", v)
			}
		}
	})
}

func runOptionsAdd(cmd *cobra.Command, args []string) error {
	kind, err := parseOptionKind(args[0])
	if err != nil {
		return err
	}

	s, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}

	added := 0
	for _, v := range args[1:] {
		ok, err := repo.AddOption(kind, v)
		if err != nil {
			return err
		}
		if ok {
			added++
		} else {
			cmd.Printf("%q is already an option\n", v)
		}
	}
	if added == 0 {
		return nil
	}

	if err := s.Workspace.SaveOptions(cmd.Context()); err != nil {
		return fmt.Errorf("failed to save options: %w", err)
	}
	cmd.Printf("Added %d %s option(s)\n", added, kind)
	return nil
}

func runOptionsCleanup(cmd *cobra.Command, _ []string) error {
	s, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}

	removed := repo.CleanupUnusedOptions()
	total := 0
	for _, values := range removed {
		total += len(values)
	}
	if total == 0 {
		cmd.Println("No unused options.")
		return nil
	}

	if err := s.Workspace.SaveOptions(cmd.Context()); err != nil {
		return fmt.Errorf("failed to save options: %w", err)
	}
	for _, k := range domain.OptionKinds {
		for _, v := range removed[k] {
			cmd.Printf("Removed %s: %s\n", k, v)
		}
	}
	return nil
}
