package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/dgallion1/rfpgest/internal/pathstore"
)

const (
	recordsPrefix = "rfp/documents"
	indexPrefix   = "rfp/index"
	sourceTag     = "rfpgest"
)

// Pathstore keeps records in a pathstore server. Each document has an index
// node so Documents can list without scanning every record.
type Pathstore struct {
	client *pathstore.Client
	now    func() time.Time
}

func NewPathstore(client *pathstore.Client) *Pathstore {
	return &Pathstore{client: client, now: time.Now}
}

func docKey(docID string) string {
	return recordsPrefix + "/" + pathstore.EscapeSegment(docID) + "/records"
}

func recordKey(docID, id string) string {
	return docKey(docID) + "/" + pathstore.EscapeSegment(id)
}

func indexKey(docID string) string {
	return indexPrefix + "/" + pathstore.EscapeSegment(docID)
}

func (p *Pathstore) Upsert(ctx context.Context, rec Record) error {
	if rec.ID == "" || rec.PartitionKey == "" {
		return fmt.Errorf("upsert: id and partitionKey are required")
	}
	rec.UpdatedAt = p.now()
	if err := p.client.PutNode(ctx, recordKey(rec.PartitionKey, rec.ID), pathstore.NodeRequest{
		Value:  rec,
		Source: sourceTag,
	}); err != nil {
		return fmt.Errorf("upsert %q: %w", rec.ID, err)
	}
	if err := p.client.PutNode(ctx, indexKey(rec.PartitionKey), pathstore.NodeRequest{
		Value:  map[string]any{"doc_id": rec.PartitionKey, "updated_at": rec.UpdatedAt.Format(time.RFC3339)},
		Source: sourceTag,
	}); err != nil {
		return fmt.Errorf("index %q: %w", rec.PartitionKey, err)
	}
	return nil
}

func (p *Pathstore) Get(ctx context.Context, docID, id string) (Record, error) {
	node, err := p.client.GetNode(ctx, recordKey(docID, id))
	if err != nil {
		return Record{}, err
	}
	if node == nil {
		return Record{}, fmt.Errorf("record %q in %q: %w", id, docID, ErrNotFound)
	}
	var rec Record
	if err := json.Unmarshal(node.Value, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record %q: %w", id, err)
	}
	return rec, nil
}

func (p *Pathstore) Query(ctx context.Context, docID string) ([]Record, error) {
	nodes, err := p.client.ListChildren(ctx, docKey(docID), 0)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("document %q: %w", docID, ErrNotFound)
	}
	out := make([]Record, 0, len(nodes))
	for _, n := range nodes {
		var rec Record
		if err := json.Unmarshal(n.Value, &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", n.Key, err)
		}
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

func (p *Pathstore) Documents(ctx context.Context) ([]string, error) {
	nodes, err := p.client.ListChildren(ctx, indexPrefix, 0)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		var v struct {
			DocID string `json:"doc_id"`
		}
		if err := json.Unmarshal(n.Value, &v); err != nil || v.DocID == "" {
			continue
		}
		out = append(out, v.DocID)
	}
	slices.Sort(out)
	return out, nil
}

func (p *Pathstore) DeleteDocument(ctx context.Context, docID string) error {
	node, err := p.client.GetNode(ctx, indexKey(docID))
	if err != nil {
		return err
	}
	if node == nil {
		return fmt.Errorf("document %q: %w", docID, ErrNotFound)
	}
	if err := p.client.DeleteNode(ctx, recordsPrefix+"/"+pathstore.EscapeSegment(docID), true); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return p.client.DeleteNode(ctx, indexKey(docID), false)
}
