package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// LoadCSV reads a dataset from CSV: a header row, a timestamp in the first
// column and one numeric series per remaining column. timeLayout defaults to
// RFC 3339 date form ("2006-01-02") when empty.
func LoadCSV(name string, r io.Reader, timeLayout string) (*models.Dataset, error) {
	if timeLayout == "" {
		timeLayout = "2006-01-02"
	}

	reader := csv.NewReader(r)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeDataset, errors.CodeInternalError,
			"failed to read CSV input")
	}
	if len(rows) < 2 {
		return nil, errors.WrapError(errors.ErrEmptyDataset, errors.ErrorTypeDataset,
			errors.CodeEmptyDataset, "CSV input needs a header and at least one data row")
	}

	header := rows[0]
	if len(header) < 2 {
		return nil, errors.NewDatasetError(errors.CodeColumnMismatch,
			"CSV input needs a timestamp column and at least one value column")
	}

	numCols := len(header) - 1
	index := make([]time.Time, 0, len(rows)-1)
	values := make([][]float64, numCols)

	for i, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, errors.NewDatasetError(errors.CodeColumnMismatch,
				fmt.Sprintf("row %d has %d fields, header has %d", i+2, len(row), len(header)))
		}
		ts, err := time.Parse(timeLayout, row[0])
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeDataset, errors.CodeUnsortedIndex,
				fmt.Sprintf("row %d: bad timestamp %q", i+2, row[0]))
		}
		index = append(index, ts)
		for c := 0; c < numCols; c++ {
			v, err := strconv.ParseFloat(row[c+1], 64)
			if err != nil {
				return nil, errors.WrapError(err, errors.ErrorTypeDataset, errors.CodeColumnMismatch,
					fmt.Sprintf("row %d, column %q: bad value %q", i+2, header[c+1], row[c+1]))
			}
			values[c] = append(values[c], v)
		}
	}

	columns := make([]models.Column, numCols)
	for c := 0; c < numCols; c++ {
		columns[c] = models.Column{Name: header[c+1], Values: values[c]}
	}
	return models.NewDataset(name, index, columns)
}
