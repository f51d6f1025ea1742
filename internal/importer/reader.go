// Package importer loads client books from CSV or XLSX exports and matches
// them against the dealer registry.
package importer

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Row is one client record from an import file.
type Row struct {
	Name    string
	Address string
	Lat     float64
	Lng     float64
}

// ReadFile dispatches on the file extension. CSV and XLSX are supported.
func ReadFile(path string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "importer: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(f)
	case ".xlsx":
		return ReadXLSX(path)
	default:
		return nil, eris.Errorf("importer: unsupported file type %s", filepath.Ext(path))
	}
}

// ReadCSV parses client rows from a CSV stream. The first row is treated as
// a header and used to locate name, address, lat, and lng columns. Only a
// name column is mandatory.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("importer: empty file")
	}
	if err != nil {
		return nil, eris.Wrap(err, "importer: read header")
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "importer: read row")
		}
		if row, ok := cols.extract(record); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// ReadXLSX parses client rows from the first sheet of an XLSX workbook.
func ReadXLSX(path string) ([]Row, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("importer: workbook has no sheets")
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("importer: empty sheet")
	}

	cols, err := mapColumns(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var rows []Row
	for _, xr := range sheet.Rows[1:] {
		if row, ok := cols.extract(rowToStrings(xr)); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		cells[i] = c.String()
	}
	return cells
}

// columnMap locates the interesting columns by header name.
type columnMap struct {
	name, address, lat, lng int
}

var columnAliases = map[string][]string{
	"name":    {"name", "client", "client name", "company", "company name", "account"},
	"address": {"address", "street", "location", "full address"},
	"lat":     {"lat", "latitude"},
	"lng":     {"lng", "lon", "long", "longitude"},
}

func mapColumns(header []string) (*columnMap, error) {
	cols := &columnMap{name: -1, address: -1, lat: -1, lng: -1}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		for field, aliases := range columnAliases {
			for _, alias := range aliases {
				if key != alias {
					continue
				}
				switch field {
				case "name":
					cols.name = i
				case "address":
					cols.address = i
				case "lat":
					cols.lat = i
				case "lng":
					cols.lng = i
				}
			}
		}
	}
	if cols.name == -1 {
		return nil, eris.Errorf("importer: no name column in header %v", header)
	}
	return cols, nil
}

// extract pulls a Row out of a record. Rows with a blank name are skipped.
func (c *columnMap) extract(record []string) (Row, bool) {
	get := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	row := Row{Name: get(c.name), Address: get(c.address)}
	if row.Name == "" {
		return Row{}, false
	}
	if v, err := strconv.ParseFloat(get(c.lat), 64); err == nil {
		row.Lat = v
	}
	if v, err := strconv.ParseFloat(get(c.lng), 64); err == nil {
		row.Lng = v
	}
	return row, true
}
