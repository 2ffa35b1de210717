package records

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestResolveMissReturnsNil(t *testing.T) {
	st := openTest(t)
	sum, err := st.Resolve(context.Background(), "S1234567A", "TX001")
	if err != nil {
		t.Fatalf("miss should not error: %v", err)
	}
	if sum != nil {
		t.Fatalf("expected nil summary on miss, got %+v", sum)
	}
}

func TestResolveProjectsLatestRow(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()
	rows := []Record{
		{Date: "2024-01-15", Description: "Income Tax", AssessmentYear: 2023, Payable: 750, Paid: 0, Balance: 750, HoldDate: "2024-02-01", HoldBank: "DBS", HoldAmount: 750},
		{Date: "2024-03-10", Description: "Payment", AssessmentYear: 2023, Payable: 0, Paid: 750, Balance: 0},
	}
	for _, rec := range rows {
		if err := st.Insert(ctx, "S1234567A", "TX001", rec); err != nil {
			t.Fatal(err)
		}
	}

	sum, err := st.Resolve(ctx, "S1234567A", "TX001")
	if err != nil {
		t.Fatal(err)
	}
	if sum == nil {
		t.Fatal("expected summary")
	}
	if sum.CurrentBalance != 0 {
		t.Fatalf("balance should come from latest row, got %v", sum.CurrentBalance)
	}
	if !sum.Settled() {
		t.Fatal("zero balance should report settled")
	}
	if sum.TotalPayable != 750 || sum.TotalPaid != 750 {
		t.Fatalf("unexpected totals: payable=%v paid=%v", sum.TotalPayable, sum.TotalPaid)
	}
	if sum.Hold == nil || sum.Hold.Institution != "DBS" || sum.Hold.Amount != 750 {
		t.Fatalf("expected DBS hold of 750, got %+v", sum.Hold)
	}
}

func TestResolveLatestHoldWins(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()
	for _, rec := range []Record{
		{Balance: 500, HoldDate: "2024-01-01", HoldBank: "UOB", HoldAmount: 500},
		{Balance: 500, HoldDate: "2024-02-01", HoldBank: "OCBC", HoldAmount: 300},
		{Balance: 500},
	} {
		if err := st.Insert(ctx, "T7654321Z", "TX009", rec); err != nil {
			t.Fatal(err)
		}
	}
	sum, err := st.Resolve(ctx, "T7654321Z", "TX009")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Hold == nil || sum.Hold.Institution != "OCBC" {
		t.Fatalf("latest hold row should win, got %+v", sum.Hold)
	}
}

func TestResolveIsFresh(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()
	if err := st.Insert(ctx, "S1234567A", "TX001", Record{Balance: 750}); err != nil {
		t.Fatal(err)
	}
	first, err := st.Resolve(ctx, "S1234567A", "TX001")
	if err != nil {
		t.Fatal(err)
	}
	if first.CurrentBalance != 750 {
		t.Fatalf("expected 750, got %v", first.CurrentBalance)
	}
	if err := st.Insert(ctx, "S1234567A", "TX001", Record{Balance: 0, Paid: 750}); err != nil {
		t.Fatal(err)
	}
	second, err := st.Resolve(ctx, "S1234567A", "TX001")
	if err != nil {
		t.Fatal(err)
	}
	if second.CurrentBalance != 0 {
		t.Fatalf("resolve must reflect latest store state, got %v", second.CurrentBalance)
	}
}

func TestImportCSVReplacesCase(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()
	body := `NRIC,Case_Number,Date,Description,Year_of_Assessment,Payable,Paid,Balance,Bank_Appointment_Date,Bank,Hold_Amount
S1234567A,TX001,2024-01-15,Income Tax,2023,750.00,0.00,750.00,2024-02-01,DBS,750.00
S1234567A,TX001,2024-03-10,Payment Received,2023,0.00,750.00,0.00,,,
T7654321Z,TX002,2024-01-20,Income Tax,2023,1200.00,200.00,1000.00,,,
`
	n, err := st.importCSV(ctx, strings.NewReader(body))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows imported, got %d", n)
	}
	sum, err := st.Resolve(ctx, "S1234567A", "TX001")
	if err != nil {
		t.Fatal(err)
	}
	if sum == nil || !sum.Settled() || sum.Hold == nil || sum.Hold.Institution != "DBS" {
		t.Fatalf("unexpected summary after import: %+v", sum)
	}

	// re-import with a changed balance replaces, not appends
	body2 := `NRIC,Case_Number,Date,Description,Year_of_Assessment,Payable,Paid,Balance,Bank_Appointment_Date,Bank,Hold_Amount
S1234567A,TX001,2024-01-15,Income Tax,2023,750.00,0.00,750.00,2024-02-01,DBS,750.00
`
	if _, err := st.importCSV(ctx, strings.NewReader(body2)); err != nil {
		t.Fatal(err)
	}
	sum, err = st.Resolve(ctx, "S1234567A", "TX001")
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Rows) != 1 || sum.CurrentBalance != 750 {
		t.Fatalf("expected one replaced row with balance 750, got %+v", sum)
	}
}

func TestImportCSVMissingColumn(t *testing.T) {
	st := openTest(t)
	_, err := st.importCSV(context.Background(), strings.NewReader("A,B\n1,2\n"))
	if err == nil {
		t.Fatal("expected error for missing required columns")
	}
}
