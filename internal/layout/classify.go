package layout

import (
	"regexp"
	"strings"
)

var (
	pageNumberRe = regexp.MustCompile(`(?i)^(page\s+)?(\d+|[ivxlcdm]{1,7})(\s+(of|/)\s+\d+)?$`)
	headingRe    = regexp.MustCompile(`^(\d+(\.\d+)*\.?|(?i:attachment|appendix|exhibit|section)\s+[A-Z0-9]+[.:]?)\s+\S`)
)

const maxHeadingLen = 120

// ClassifyLine assigns a role to a single line of extracted text.
// Running headers and footers are detected separately by detectRunning.
func ClassifyLine(line string) Role {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return RoleBody
	case pageNumberRe.MatchString(line):
		return RolePageNumber
	case len(line) <= maxHeadingLen && headingRe.MatchString(line) && !strings.HasSuffix(line, "."):
		return RoleSectionHeading
	}
	return RoleBody
}

// detectRunning finds lines repeated at the top or bottom of at least half
// of the pages (and at least two). Returns header and footer line sets.
func detectRunning(pages [][]string) (headers, footers map[string]bool) {
	headers = map[string]bool{}
	footers = map[string]bool{}
	if len(pages) < 2 {
		return headers, footers
	}
	firsts := map[string]int{}
	lasts := map[string]int{}
	for _, raw := range pages {
		lines := nonEmpty(raw)
		if len(lines) == 0 {
			continue
		}
		firsts[lines[0]]++
		last := lines[len(lines)-1]
		// Page numbers usually sit last; look one line above them.
		if pageNumberRe.MatchString(last) && len(lines) > 1 {
			last = lines[len(lines)-2]
		}
		lasts[last]++
	}
	threshold := (len(pages) + 1) / 2
	if threshold < 2 {
		threshold = 2
	}
	for line, n := range firsts {
		if n >= threshold && !pageNumberRe.MatchString(line) {
			headers[line] = true
		}
	}
	for line, n := range lasts {
		if n >= threshold && !pageNumberRe.MatchString(line) {
			footers[line] = true
		}
	}
	return headers, footers
}

// classifyPages turns per-page lines into a Document. Consecutive body lines
// on the same page are merged into one paragraph.
func classifyPages(pages [][]string) *Document {
	headers, footers := detectRunning(pages)
	var b builder
	for i, lines := range pages {
		pageNum := i + 1
		var body strings.Builder
		flush := func() {
			b.add(RoleBody, body.String(), pageNum)
			body.Reset()
		}
		for _, raw := range lines {
			line := strings.TrimSpace(raw)
			if line == "" {
				flush()
				continue
			}
			b.addLine(pageNum, line)
			var role Role
			switch {
			case headers[line]:
				role = RolePageHeader
			case footers[line]:
				role = RolePageFooter
			default:
				role = ClassifyLine(line)
			}
			if role == RoleBody {
				if body.Len() > 0 {
					body.WriteString(" ")
				}
				body.WriteString(line)
				continue
			}
			flush()
			b.add(role, line, pageNum)
		}
		flush()
	}
	return b.document()
}

func nonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
