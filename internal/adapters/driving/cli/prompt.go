package cli

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// isInteractive reports whether stdin is a terminal. Tests replace it.
var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// confirm asks a yes/no question on the terminal. Without a terminal it
// refuses, so scripts must pass --yes.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	if !isInteractive() {
		return false, errors.New("refusing to continue without a terminal; pass --yes to confirm")
	}
	cmd.Printf("%s [y/N]: ", prompt)
	answer := readLine(bufio.NewReader(cmd.InOrStdin()))
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes"), nil
}

// openInput returns the named file, or stdin for "-".
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(path)
}

func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
