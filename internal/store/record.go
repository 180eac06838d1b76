// Package store persists section, table-of-contents and status records in a
// document-keyed store.
package store

import "time"

// Kind distinguishes record types sharing a document partition.
type Kind string

const (
	KindSection Kind = "section"
	KindTOC     Kind = "toc"
	KindStatus  Kind = "status"
)

// Fixed record IDs. Section IDs always contain " - ", so they never
// collide with these.
const (
	StatusRecordID = "status"
	TOCRecordID    = "toc"
)

// Requirement is one parsed requirement line attached to a section.
type Requirement struct {
	SectionName   string `json:"section_name"`
	PageNumber    string `json:"page_number"`
	SectionNumber string `json:"section_number"`
	Content       string `json:"content"`
	IsRequirement string `json:"is_requirement"`
}

// TOCEntry mirrors the parsed table-of-contents line.
type TOCEntry struct {
	Number    string `json:"number"`
	Name      string `json:"name"`
	StartPage int    `json:"start_page"`
	PageRange [2]int `json:"page_range"`
}

// Record is the persisted document. Field names follow the Cosmos layout.
type Record struct {
	ID           string `json:"id"`
	PartitionKey string `json:"partitionKey"`
	Kind         Kind   `json:"kind"`

	SectionID      string `json:"section_id,omitempty"`
	SectionContent string `json:"section_content,omitempty"`
	PageNumber     string `json:"page_number,omitempty"`
	Order          int    `json:"order"`

	TableOfContents string     `json:"table_of_contents,omitempty"`
	TOCEntries      []TOCEntry `json:"toc_entries,omitempty"`

	Requirements []Requirement `json:"requirements,omitempty"`
	Analysis     string        `json:"analysis,omitempty"`
	Extracted    bool          `json:"extracted"`
	Reviewed     bool          `json:"reviewed"`

	JobID       string `json:"job_id,omitempty"`
	JobKind     string `json:"job_kind,omitempty"`
	Status      string `json:"status,omitempty"`
	Phase       string `json:"phase,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Filename    string `json:"filename,omitempty"`
	SectionsOK  int    `json:"sections_ok,omitempty"`
	SectionsErr int    `json:"sections_failed,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

