package records

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ImportCSV reads a case-record CSV and replaces the affected cases in the
// store. Rows are grouped per (identity, case reference) pair so each case is
// swapped atomically. Returns the number of data rows imported.
func (s *Store) ImportCSV(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return s.importCSV(ctx, f)
}

func (s *Store) importCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"NRIC", "Case_Number", "Balance"} {
		if _, ok := idx[required]; !ok {
			return 0, fmt.Errorf("csv missing required column %s", required)
		}
	}

	type caseKey struct{ identity, caseRef string }
	grouped := make(map[caseKey][]Record)
	var order []caseKey
	count := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read csv row: %w", err)
		}
		field := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		key := caseKey{
			identity: strings.ToUpper(field("NRIC")),
			caseRef:  strings.ToUpper(field("Case_Number")),
		}
		if key.identity == "" || key.caseRef == "" {
			continue
		}
		rec := Record{
			Date:           field("Date"),
			Description:    field("Description"),
			AssessmentYear: atoi(field("Year_of_Assessment")),
			Payable:        atof(field("Payable")),
			Paid:           atof(field("Paid")),
			Balance:        atof(field("Balance")),
			HoldDate:       field("Bank_Appointment_Date"),
			HoldBank:       strings.ToUpper(field("Bank")),
			HoldAmount:     atof(field("Hold_Amount")),
		}
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], rec)
		count++
	}

	for _, key := range order {
		if err := s.ReplaceCase(ctx, key.identity, key.caseRef, grouped[key]); err != nil {
			return 0, fmt.Errorf("import case %s/%s: %w", key.identity, key.caseRef, err)
		}
	}
	return count, nil
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func atof(s string) float64 {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0
	}
	return f
}
