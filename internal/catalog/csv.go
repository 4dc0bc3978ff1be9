package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jvillar/tienda/internal/encoding"
)

// ParseCSV reads a products CSV with columns name, unit_price, stock_quantity.
// A header row is optional and recognized by its first column. Prices accept
// a comma decimal separator since most supplier sheets use it.
func ParseCSV(r io.Reader) ([]*Product, error) {
	utf8r, err := encoding.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("normalizing encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true

	var products []*Product

	line := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", line+1, err)
		}

		line++

		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "name") {
			continue
		}

		product, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}

		products = append(products, product)
	}

	return products, nil
}

func parseRow(record []string) (*Product, error) {
	name := strings.TrimSpace(record[0])
	if name == "" {
		return nil, fmt.Errorf("name is empty")
	}

	priceStr := strings.ReplaceAll(strings.TrimSpace(record[1]), ",", ".")

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("parsing unit price %q: %w", record[1], err)
	}

	if price.IsNegative() {
		return nil, fmt.Errorf("unit price %s is negative", price)
	}

	stock, err := strconv.Atoi(strings.TrimSpace(record[2]))
	if err != nil {
		return nil, fmt.Errorf("parsing stock quantity %q: %w", record[2], err)
	}

	if stock < 0 {
		return nil, fmt.Errorf("stock quantity %d is negative", stock)
	}

	return &Product{
		Name:          name,
		UnitPrice:     price,
		StockQuantity: stock,
		IsActive:      true,
	}, nil
}
