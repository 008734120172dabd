package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	appctx "github.com/lucasnoah/axpipe/internal/context"
	"github.com/lucasnoah/axpipe/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ECC71"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F1C40F"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func jsonFormat(cmd *cobra.Command) bool {
	format, _ := cmd.Flags().GetString("format")
	return format == "json"
}

func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().String("format", "text", "Output format: text or json")
}

func statusIcon(s pipeline.Status) string {
	switch s {
	case pipeline.StatusCompleted:
		return okStyle.Render("✓")
	case pipeline.StatusInProgress:
		return titleStyle.Render("▶")
	case pipeline.StatusFailed:
		return errStyle.Render("✗")
	case pipeline.StatusSkipped:
		return dimStyle.Render("↷")
	}
	return dimStyle.Render("○")
}

func actionStyle(p appctx.Priority) lipgloss.Style {
	switch p {
	case appctx.PriorityCritical:
		return errStyle
	case appctx.PriorityWarning:
		return warnStyle
	}
	return dimStyle
}

// progressBar renders percent as a fixed-width bar.
func progressBar(percent, width int) string {
	filled := percent * width / 100
	return okStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", width-filled))
}

func printMessages(cmd *cobra.Command, style lipgloss.Style, label string, msgs []string) {
	if len(msgs) == 0 {
		return
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, style.Render(label))
	for _, m := range msgs {
		fmt.Fprintf(w, "  - %s\n", m)
	}
}

// preview shortens s to at most n characters, cutting on a rune boundary.
func preview(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + "\n..."
		}
		count++
	}
	return s
}
