// Package loader reads the tabular customer, account and transaction
// extracts into untyped rows.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sarflow/internal/casefile/models"
)

// File names expected in a data directory.
const (
	CustomersFile    = "customers.csv"
	AccountsFile     = "accounts.csv"
	TransactionsFile = "transactions.csv"
)

// missingMarkers are cell values read as "no value".
var missingMarkers = map[string]struct{}{
	"":     {},
	"nan":  {},
	"NaN":  {},
	"NAN":  {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"null": {},
	"NULL": {},
	"None": {},
	"<NA>": {},
}

// Dataset holds the three extracts of one data directory.
type Dataset struct {
	Customers    []models.Row
	Accounts     []models.Row
	Transactions []models.Row
}

// LoadDir reads customers.csv, accounts.csv and transactions.csv from dir.
func LoadDir(dir string) (*Dataset, error) {
	var ds Dataset
	for _, f := range []struct {
		name string
		dst  *[]models.Row
	}{
		{CustomersFile, &ds.Customers},
		{AccountsFile, &ds.Accounts},
		{TransactionsFile, &ds.Transactions},
	} {
		rows, err := ReadFile(filepath.Join(dir, f.name))
		if err != nil {
			return nil, err
		}
		*f.dst = rows
	}
	return &ds, nil
}

func ReadFile(path string) ([]models.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	rows, err := ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// ReadRows parses a CSV document with a header line. Cell values are
// trimmed and kept as text; missing markers leave the column out of the row.
func ReadRows(r io.Reader) ([]models.Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	cr.FieldsPerRecord = len(header)

	var rows []models.Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		row := make(models.Row, len(header))
		for i, col := range header {
			v := strings.TrimSpace(rec[i])
			if _, missing := missingMarkers[v]; missing {
				continue
			}
			row[col] = v
		}
		rows = append(rows, row)
	}
}
