package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatSize(bytes int64) string {
	if bytes <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(bytes))
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func colorized(value string, color text.Color, colorize bool) string {
	if !colorize {
		return value
	}
	return color.Sprint(value)
}

func syncStatusColor(status string) text.Color {
	switch status {
	case "synced":
		return text.FgGreen
	case "uploading":
		return text.FgBlue
	case "dirty":
		return text.FgYellow
	default:
		return text.FgWhite
	}
}

var titleCaser = cases.Title(language.English)

// displayTitleFromFilename derives a readable item title from a file name:
// "my-summer_trip.jpg" becomes "My Summer Trip".
func displayTitleFromFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Untitled"
	}
	return titleCaser.String(base)
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func formatPercent(fraction float64) string {
	return fmt.Sprintf("%.0f%%", fraction*100)
}
