package airtable

import (
	"context"
	"net/url"
)

// Pager iterates a table page by page. It is forward-only and single-use:
// open a fresh Pager for every scan. Not safe for concurrent use.
type Pager struct {
	c      *Client
	table  string
	fields []string

	offset string
	done   bool
}

// Scan opens a full-table scan with the given field projection.
func (c *Client) Scan(table string, fields []string) *Pager {
	return &Pager{c: c, table: table, fields: fields}
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

// NextPage fetches the next page of records. done is true once the table is
// exhausted; after that (or after any error) the Pager is spent. A page may
// legitimately be empty.
func (p *Pager) NextPage(ctx context.Context) (records []Record, done bool, err error) {
	if p.done {
		return nil, true, nil
	}

	q := url.Values{}
	for _, f := range p.fields {
		q.Add("fields[]", f)
	}
	if p.offset != "" {
		q.Set("offset", p.offset)
	}

	var resp listResponse
	if err := p.c.do(ctx, "GET", p.c.tableURL(p.table)+"?"+q.Encode(), nil, &resp); err != nil {
		p.done = true
		return nil, true, err
	}

	p.offset = resp.Offset
	if p.offset == "" {
		p.done = true
	}
	return resp.Records, p.done, nil
}
