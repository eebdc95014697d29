package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// palette is the colour set used for table output.
type palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Border    lipgloss.Color
}

func defaultPalette() palette {
	return palette{
		Primary:   lipgloss.Color("#7C3AED"), // Purple
		Secondary: lipgloss.Color("#06B6D4"), // Cyan
		Muted:     lipgloss.Color("#6C7086"), // Medium gray
		Success:   lipgloss.Color("#A6E3A1"), // Green
		Warning:   lipgloss.Color("#F9E2AF"), // Yellow
		Border:    lipgloss.Color("#45475A"), // Border gray
	}
}

// styles renders for one writer. Colours are dropped when the writer is
// not a terminal.
type styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Border  lipgloss.Style
}

func newStyles(w io.Writer) *styles {
	r := lipgloss.NewRenderer(w)
	p := defaultPalette()
	return &styles{
		Title:   r.NewStyle().Bold(true).Foreground(p.Primary),
		Label:   r.NewStyle().Bold(true).Foreground(p.Secondary),
		Header:  r.NewStyle().Bold(true).Foreground(p.Secondary).Padding(0, 1),
		Cell:    r.NewStyle().Padding(0, 1),
		Muted:   r.NewStyle().Foreground(p.Muted),
		Success: r.NewStyle().Foreground(p.Success),
		Warning: r.NewStyle().Foreground(p.Warning),
		Border:  r.NewStyle().Foreground(p.Border),
	}
}

// table renders rows under headers with a thin border.
func (s *styles) table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Header
			}
			return s.Cell
		}).
		Render()
}

// field writes one "label: value" line, skipping empty values.
func (s *styles) field(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "%s %s\n", s.Label.Render(label+":"), value)
}

// render writes v as JSON or YAML, or calls tableFn for table output.
func render(cmd *cobra.Command, v any, tableFn func(w io.Writer, st *styles)) error {
	w := cmd.OutOrStdout()
	switch outputFormat {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		return writeYAML(w, v)
	default:
		tableFn(w, newStyles(w))
		return nil
	}
}

// writeYAML encodes v through its JSON form so field names and order match
// the stored files.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	blockStyle(&doc)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return enc.Close()
}

// blockStyle clears the flow and quoting styles a JSON document decodes
// with. The encoder re-quotes strings that would otherwise change type.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// truncate shortens s to at most n runes on one line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func joinList(values []string) string {
	return strings.Join(values, ", ")
}
