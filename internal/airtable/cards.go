package airtable

import "context"

// CardTable binds a Client to the card table with the fixed projection.
type CardTable struct {
	c     *Client
	table string
}

func NewCardTable(c *Client, table string) *CardTable {
	return &CardTable{c: c, table: table}
}

// ScanCards opens a fresh full-table scan.
func (t *CardTable) ScanCards() *Pager {
	return t.c.Scan(t.table, Projection)
}

// MarkPosted flips posted=true for every given record id in one batched
// update. The posted flag is only ever written here; it is never
// read-modified-written per record.
func (t *CardTable) MarkPosted(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	updates := make([]RecordUpdate, 0, len(ids))
	for _, id := range ids {
		updates = append(updates, RecordUpdate{ID: id, Fields: map[string]any{"posted": true}})
	}
	return t.c.UpdateRecords(ctx, t.table, updates)
}
