package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export data",
}

var exportCSVCmd = &cobra.Command{
	Use:   "csv [file]",
	Short: "Export contacts as CSV",
	Long: `Export every contact as UTF-8 CSV with a byte order mark, so spreadsheet
applications detect the encoding. Multi-valued fields are joined with ";".
Without a file the CSV is written to standard output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExportCSV,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import data",
}

var importCSVCmd = &cobra.Command{
	Use:   "csv [file]",
	Short: "Import contacts from CSV",
	Long: `Import contacts from CSV. Columns are matched by header name. Rows with an
existing ID replace that contact; rows without an ID become new contacts.
Use "-" to read standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportCSV,
}

func init() {
	exportCmd.AddCommand(exportCSVCmd)
	importCmd.AddCommand(importCSVCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func runExportCSV(cmd *cobra.Command, args []string) (err error) {
	s, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}
	contacts := repo.Contacts()

	if len(args) == 0 {
		return s.Transfer.ExportCSV(cmd.OutOrStdout(), contacts)
	}

	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", args[0], err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if err := s.Transfer.ExportCSV(f, contacts); err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	cmd.PrintErrf("Exported %d contact(s) to %s\n", len(contacts), args[0])
	return nil
}

func runImportCSV(cmd *cobra.Command, args []string) error {
	in, err := openInput(cmd, args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	s, _, err := openRepository(cmd)
	if err != nil {
		return err
	}

	report, err := s.Workspace.ImportCSV(cmd.Context(), s.Transfer, in)
	if report == nil {
		return fmt.Errorf("failed to import: %w", err)
	}
	if err != nil {
		return fmt.Errorf("imported contacts could not all be saved: %w", err)
	}

	return render(cmd, report, func(w io.Writer, st *styles) {
		fmt.Fprintf(w, "%s %d created, %d updated, %d skipped\n",
			st.Success.Render("Imported:"), report.Created, report.Updated, report.Skipped)
		for _, msg := range report.Errors {
			fmt.Fprintln(w, st.Warning.Render("  "+msg))
		}
	})
}
