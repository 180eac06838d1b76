package section

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dgallion1/rfpgest/internal/layout"
)

// UnknownPage is written when no page number was seen before a section closed.
const UnknownPage = "unknown"

// Section is one populated section. Order is the index of the heading's
// first appearance among populated sections.
type Section struct {
	Heading    string `json:"heading"`
	Content    string `json:"content"`
	PageNumber string `json:"page_number"`
	Order      int    `json:"order"`
}

// Populator assigns paragraphs to sections in a single sequential pass.
type Populator struct {
	normalizer PageNormalizer
	log        *slog.Logger
}

func NewPopulator(n PageNormalizer, log *slog.Logger) *Populator {
	if n == nil {
		n = RuleNormalizer{}
	}
	return &Populator{normalizer: n, log: log}
}

type openSection struct {
	content  strings.Builder
	page     string
	resolved bool
}

func (p *Populator) Populate(ctx context.Context, paragraphs []layout.Paragraph, headings []string) []Section {
	valid := make(map[string]bool, len(headings))
	for _, h := range headings {
		valid[h] = true
	}

	var (
		order    []string
		sections = map[string]*openSection{}
		current  *openSection
		pending  string
	)

	closeCurrent := func() {
		if current == nil || current.resolved {
			return
		}
		page := pending
		if page == "" {
			page = UnknownPage
		}
		current.content.WriteString("Page Number: " + page + "\n")
		if current.page == "" {
			current.page = page
		}
	}

	for _, para := range paragraphs {
		content := strings.TrimSpace(para.Content)
		if para.Role.IsHeading() && valid[content] {
			closeCurrent()
			if _, seen := sections[content]; !seen {
				order = append(order, content)
			} else {
				p.log.Warn("duplicate heading restarts section", "heading", content, "index", para.Index)
			}
			current = &openSection{}
			sections[content] = current
			continue
		}
		if current == nil {
			continue
		}

		switch para.Role {
		case layout.RolePageHeader, layout.RolePageFooter:
			continue
		case layout.RolePageNumber:
			page := p.normalizer.Normalize(ctx, para.Content)
			current.content.WriteString("Page Number: " + page + "\n")
			if current.page == "" {
				current.page = page
			}
			current.resolved = true
			if n, err := strconv.Atoi(page); err == nil {
				pending = strconv.Itoa(n + 1)
			} else {
				p.log.Info("non-numeric page number carried forward", "page", page, "index", para.Index)
				pending = page
			}
			continue
		}
		current.content.WriteString(para.Content + "\n")
	}

	out := make([]Section, 0, len(order))
	for i, h := range order {
		s := sections[h]
		page := s.page
		if page == "" {
			page = pending
		}
		if page == "" {
			page = UnknownPage
		}
		out = append(out, Section{
			Heading:    h,
			Content:    s.content.String(),
			PageNumber: page,
			Order:      i,
		})
	}
	return out
}
