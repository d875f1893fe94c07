package state

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/charmbracelet/lipgloss"

	"github.com/bolasblack/dirsync/internal/util"
)

var bannerTmpl = template.Must(template.New("banner").Parse(`
{{ .Header }}
{{ range .Lines }}  {{ . }}
{{ end }}{{ if .MoreCount }}  ...and {{ .MoreCount }} more
{{ end }}{{ .Footer }}
`))

type bannerData struct {
	Header    string
	Lines     []string
	MoreCount int
	Footer    string
}

// bannerMaxPaths is the maximum number of failed entries shown in the banner.
const bannerMaxPaths = 3

// RenderBanner writes a warning about a failed pass to w. lipgloss strips the
// colour when w is not a terminal. Writes nothing if the pass succeeded.
func RenderBanner(record *PassRecord, w io.Writer) {
	if !record.Failed() {
		return
	}

	renderer := lipgloss.NewRenderer(w)
	yellow := renderer.NewStyle().Foreground(lipgloss.Color("3"))

	var data bannerData
	if record.Aborted != "" {
		data.Header = yellow.Render("⚠ The last pass was aborted:")
		data.Lines = []string{record.Aborted}
	} else {
		data.Header = yellow.Render(fmt.Sprintf("⚠ %s could not be mirrored in the last pass:",
			util.Count(len(record.Errors), "entry", "entries")))

		shown := min(len(record.Errors), bannerMaxPaths)
		for _, e := range record.Errors[:shown] {
			data.Lines = append(data.Lines, fmt.Sprintf("%-30s (%s: %s)", e.Path, e.Op, e.Error))
		}
		if len(record.Errors) > bannerMaxPaths {
			data.MoreCount = len(record.Errors) - bannerMaxPaths
		}
	}
	data.Footer = yellow.Render("See the log file for details; the next pass retries automatically.")

	var buf strings.Builder
	_ = bannerTmpl.Execute(&buf, data)
	_, _ = io.WriteString(w, buf.String())
}
