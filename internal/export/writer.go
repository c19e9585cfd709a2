package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/alex-user-go/bizfinder/internal/search/types"
)

// Header is the stable column order for exported files.
var Header = []string{
	"Business Name", "Category", "Address", "City", "Country",
	"Phone Number", "Email", "Website", "Google Rating",
	"Number of Reviews", "Latitude", "Longitude", "API Source",
}

// WriteCSV writes records as a CSV file with the standard header row.
func WriteCSV(w io.Writer, records []types.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return fmt.Errorf("write record %q: %w", r.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes records as a single-sheet Excel workbook with the
// standard header row.
func WriteXLSX(w io.Writer, records []types.Record) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", toAnySlice(Header)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, toAnySlice(row(r))); err != nil {
			return fmt.Errorf("write record %q: %w", r.Name, err)
		}
	}

	return f.Write(w)
}

func row(r types.Record) []string {
	lat, lng := coordinates(r)
	return []string{
		r.Name, r.Category, r.Address, r.City, r.Country,
		r.Phone, r.Email, r.Website, r.Rating,
		r.ReviewCount, lat, lng, r.Source,
	}
}

// coordinates renders the point, or empty cells when the provider
// returned no location at all.
func coordinates(r types.Record) (string, string) {
	if r.Latitude == 0 && r.Longitude == 0 {
		return "", ""
	}
	return strconv.FormatFloat(r.Latitude, 'f', -1, 64),
		strconv.FormatFloat(r.Longitude, 'f', -1, 64)
}

func toAnySlice(values []string) *[]any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return &out
}
