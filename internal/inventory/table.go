package inventory

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"
)

type csvCodec struct{}

func (csvCodec) read(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func (csvCodec) write(path string, rows []StockItem) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(stockHeader); err != nil {
		return err
	}
	for _, it := range rows {
		if err := w.Write([]string{it.Produkt, it.Kategorie, strconv.Itoa(it.Menge), formatPrice(it.Preis)}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return writeFileReplace(path, buf.Bytes())
}

type xlsxCodec struct {
	sheet string
}

func (c xlsxCodec) read(path string) ([][]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := c.sheet
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

func (c xlsxCodec) write(path string, rows []StockItem) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), c.sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(stockHeader))
	for i, h := range stockHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(c.sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, it := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{it.Produkt, it.Kategorie, it.Menge, it.Preis}
		if err := f.SetSheetRow(c.sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}
	return writeFileReplace(path, buf.Bytes())
}
