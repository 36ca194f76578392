package domain

import "time"

// RowRejection a data row the normalizer refused.
type RowRejection struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// BatchError a batch the store refused; its rows are neither inserted nor duplicates.
type BatchError struct {
	FirstRow int    `json:"first_row"`
	LastRow  int    `json:"last_row"`
	Rows     int    `json:"rows"`
	Reason   string `json:"reason"`
}

// ImportResult per-import tally returned to the operator. Not persisted.
type ImportResult struct {
	JobID      string         `json:"job_id,omitempty"`
	TotalRows  int            `json:"total_rows"`
	Inserted   int            `json:"inserted"`
	Duplicates int            `json:"duplicates"`
	Rejected   []RowRejection `json:"rejected"`
	Errors     []BatchError   `json:"errors"`
	Duration   time.Duration  `json:"-"`
}

// ErrorCount rejected rows plus rows in failed batches.
func (r *ImportResult) ErrorCount() int {
	n := len(r.Rejected)
	for _, e := range r.Errors {
		n += e.Rows
	}
	return n
}

// SheetRow one non-blank data row with its spreadsheet row number (header is row 1).
type SheetRow struct {
	Number int      `json:"n"`
	Cells  []string `json:"c"`
}

// ImportJob a parsed workbook waiting for its column mapping.
type ImportJob struct {
	JobID     string     `json:"job_id"`
	FileName  string     `json:"file_name"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	Headers   []string   `json:"headers"`
	Rows      []SheetRow `json:"rows"`
}
