package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestLoadFileCSV(t *testing.T) {
	content := "Brand;Model;Year;Length (mm);Width (mm);Height (mm);Kerb Weight (kg)\n" +
		"Toyota;Corolla;2022;4630;1780;1435;1350\n" +
		"Vinfast;VF 9;2023;5118;2254;1696;2600-2866\n" +
		"Toyota;Camry;2022;4885;1840;1445;1550\n"

	path := filepath.Join(t.TempDir(), "inforcar.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	store, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if store.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", store.Len())
	}

	e := store.Entries()[0]
	if e.Brand != "TOYOTA" || e.Model != "COROLLA" {
		t.Fatalf("expected canonical upper-case brand/model, got %q %q", e.Brand, e.Model)
	}
	if e.KerbWeight != "1350" {
		t.Fatalf("kerb weight mismatch: %q", e.KerbWeight)
	}

	models := store.Models()
	if len(models) != 3 || models[0] != "COROLLA" || models[1] != "VF 9" {
		t.Fatalf("model list order mismatch: %#v", models)
	}
}

func TestLoadFileXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Brand", "Model", "Year", "Length (mm)", "Width (mm)", "Height (mm)", "Kerb Weight (kg)"},
		{"Honda", "Civic", "2021", "4678", "1802", "1415", "1300"},
		{"Mazda", "CX-5", "2022", "4575", "1845", "1680", "1620"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "inforcar.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save xlsx: %v", err)
	}
	_ = f.Close()

	store, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", store.Len())
	}
	if store.Entries()[1].Model != "CX-5" {
		t.Fatalf("model mismatch: %q", store.Entries()[1].Model)
	}
}

func TestLoadFileMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(path, []byte("A;B\n1;2\n"), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected error for missing Brand/Model columns")
	}
}
