package ioformats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"certverify/internal/models"
)

const (
	ColumnOrganization = "Organization Name"
	ColumnURL          = "Verification URL"
)

const bom = "\ufeff"

// ReadTrustTable reads (organization, verification URL) rows from a CSV file.
func ReadTrustTable(path string) ([]models.TrustEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTrustTable(f)
}

// ParseTrustTable reads a trust table. The header row may carry a byte-order
// mark and padded column names. Rows without a URL are skipped.
func ParseTrustTable(r io.Reader) ([]models.TrustEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read trust table: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("empty csv")
	}
	orgCol, urlCol := -1, -1
	for i, h := range rows[0] {
		name := strings.TrimSpace(strings.TrimPrefix(h, bom))
		switch {
		case strings.EqualFold(name, ColumnOrganization):
			orgCol = i
		case strings.EqualFold(name, ColumnURL):
			urlCol = i
		}
	}
	if urlCol == -1 {
		return nil, fmt.Errorf("csv must contain a %q header column", ColumnURL)
	}
	var out []models.TrustEntry
	for _, row := range rows[1:] {
		if urlCol >= len(row) {
			continue
		}
		u := strings.TrimSpace(row[urlCol])
		if u == "" {
			continue
		}
		var org string
		if orgCol >= 0 && orgCol < len(row) {
			org = strings.TrimSpace(row[orgCol])
		}
		out = append(out, models.TrustEntry{OrganizationName: org, VerificationURL: u})
	}
	return out, nil
}
