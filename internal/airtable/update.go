package airtable

import (
	"context"
	"fmt"
)

// Airtable rejects write batches larger than 10 records.
const maxUpdateBatch = 10

// RecordUpdate is one {id, fields} tuple of a batched update.
type RecordUpdate struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

type updateRequest struct {
	Records []RecordUpdate `json:"records"`
}

// UpdateRecords patches the given records, transparently splitting the batch
// into API-sized chunks. Chunks are issued in order; a failed chunk aborts
// the remainder.
func (c *Client) UpdateRecords(ctx context.Context, table string, updates []RecordUpdate) error {
	for start := 0; start < len(updates); start += maxUpdateBatch {
		end := start + maxUpdateBatch
		if end > len(updates) {
			end = len(updates)
		}
		req := updateRequest{Records: updates[start:end]}
		if err := c.do(ctx, "PATCH", c.tableURL(table), req, nil); err != nil {
			return fmt.Errorf("update records [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}
