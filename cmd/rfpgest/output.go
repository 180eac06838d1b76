package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dgallion1/rfpgest/internal/pipeline"
	"github.com/dgallion1/rfpgest/internal/requirements"
	"github.com/dgallion1/rfpgest/internal/section"
)

const previewLines = 3

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	headingStyle = lipgloss.NewStyle().
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
)

func verdictStyle(v section.Verdict) lipgloss.Style {
	switch v {
	case section.Valid:
		return successStyle
	case section.Invalid:
		return errorStyle
	}
	return warnStyle
}

func statusStyle(s pipeline.JobStatus) lipgloss.Style {
	switch s {
	case pipeline.StatusSucceeded:
		return successStyle
	case pipeline.StatusFailed:
		return errorStyle
	}
	return warnStyle
}

// renderSections prints a sectioning result: the TOC summary, every verdict
// and a short preview of each section.
func renderSections(w io.Writer, res *section.Result) {
	summary := fmt.Sprintf("%s %s\n%s %d entries\n%s %d",
		dimStyle.Render("Document:"), res.DocID,
		dimStyle.Render("TOC:"), len(res.TOC.Entries),
		dimStyle.Render("Sections:"), len(res.Sections))
	if res.TOCError != "" {
		summary += "\n" + errorStyle.Render("TOC extraction failed: "+res.TOCError)
	}
	fmt.Fprintln(w, boxStyle.Render(titleStyle.Render("rfpgest")+"\n"+summary))

	if len(res.Validations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render("Headings"))
		for _, v := range res.Validations {
			fmt.Fprintf(w, "  %s %s\n", verdictStyle(v.Verdict).Render(fmt.Sprintf("%-11s", v.Verdict)), v.Heading)
		}
	}

	for _, sec := range res.Sections {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %s\n", headingStyle.Render(sec.Heading), dimStyle.Render("p. "+sec.PageNumber))
		lines := strings.Split(strings.TrimSpace(sec.Content), "\n")
		for i, line := range lines {
			if i == previewLines {
				fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("  ... %d more lines", len(lines)-previewLines)))
				break
			}
			fmt.Fprintln(w, "  "+line)
		}
	}
}

func renderJob(w io.Writer, snap pipeline.JobSnapshot) {
	status := statusStyle(snap.Status).Render(string(snap.Status))
	fmt.Fprintf(w, "%s %s %s\n", titleStyle.Render(string(snap.Kind)), snap.DocID, status)
	fmt.Fprintf(w, "%s %d  %s %d  %s %d\n",
		dimStyle.Render("total"), snap.Progress.Total,
		dimStyle.Render("done"), snap.Progress.Done,
		dimStyle.Render("failed"), snap.Progress.Failed)
	if snap.Reason != "" {
		fmt.Fprintln(w, dimStyle.Render("reason: ")+snap.Reason)
	}
	for _, e := range snap.Progress.Errors {
		fmt.Fprintln(w, errorStyle.Render("  ! ")+e)
	}
}

func renderProgress(w io.Writer, docID string, p requirements.ProgressReport) {
	body := fmt.Sprintf("%s %d\n%s %d (%.0f%%)\n%s %d (%.0f%%)",
		dimStyle.Render("Sections: "), p.Total,
		dimStyle.Render("Extracted:"), p.Extracted, p.ExtractionPercent,
		dimStyle.Render("Reviewed: "), p.Reviewed, p.ReviewPercent)
	fmt.Fprintln(w, boxStyle.Render(titleStyle.Render(docID)+"\n"+body))
}
