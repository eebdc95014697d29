package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := versionInfo{
			Version:  version,
			Go:       runtime.Version(),
			Platform: runtime.GOOS + "/" + runtime.GOARCH,
		}
		return render(cmd, info, func(w io.Writer, _ *styles) {
			fmt.Fprintf(w, "rolodex version %s (%s, %s)\n", info.Version, info.Go, info.Platform)
		})
	},
}

type versionInfo struct {
	Version  string `json:"version"`
	Go       string `json:"go"`
	Platform string `json:"platform"`
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
