package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/signalkit/signalkit/pkg/errors"
)

// Column is a named sequence of observations.
type Column struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Dataset is a time-indexed table of one or more numeric columns.
// The index is strictly increasing, column names are unique, and all
// columns have the same length as the index. A Dataset is immutable
// after construction; accessors return copies.
type Dataset struct {
	id        string
	name      string
	index     []time.Time
	columns   []Column
	createdAt time.Time
}

// NewDataset creates a validated dataset from an index and columns.
func NewDataset(name string, index []time.Time, columns []Column) (*Dataset, error) {
	if len(index) == 0 || len(columns) == 0 {
		return nil, errors.WrapError(errors.ErrEmptyDataset, errors.ErrorTypeDataset,
			errors.CodeEmptyDataset, "dataset requires at least one observation and one column")
	}

	for i := 1; i < len(index); i++ {
		if !index[i].After(index[i-1]) {
			return nil, errors.WrapError(errors.ErrUnsortedIndex, errors.ErrorTypeDataset,
				errors.CodeUnsortedIndex,
				fmt.Sprintf("index not increasing at position %d", i))
		}
	}

	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if col.Name == "" {
			return nil, errors.NewDatasetError(errors.CodeDuplicateColumn, "column name must not be empty")
		}
		if seen[col.Name] {
			return nil, errors.WrapError(errors.ErrDuplicateColumn, errors.ErrorTypeDataset,
				errors.CodeDuplicateColumn,
				fmt.Sprintf("duplicate column %q", col.Name))
		}
		seen[col.Name] = true
		if len(col.Values) != len(index) {
			return nil, errors.WrapError(errors.ErrColumnLengthsVary, errors.ErrorTypeDataset,
				errors.CodeColumnMismatch,
				fmt.Sprintf("column %q has %d values, index has %d", col.Name, len(col.Values), len(index)))
		}
	}

	idx := make([]time.Time, len(index))
	copy(idx, index)

	cols := make([]Column, len(columns))
	for i, col := range columns {
		values := make([]float64, len(col.Values))
		copy(values, col.Values)
		cols[i] = Column{Name: col.Name, Values: values}
	}

	return &Dataset{
		id:        uuid.New().String(),
		name:      name,
		index:     idx,
		columns:   cols,
		createdAt: time.Now(),
	}, nil
}

// NewUnivariate creates a single-column dataset.
func NewUnivariate(name string, index []time.Time, values []float64) (*Dataset, error) {
	return NewDataset(name, index, []Column{{Name: name, Values: values}})
}

// ID returns the unique dataset identifier.
func (d *Dataset) ID() string {
	return d.id
}

// Name returns the dataset name.
func (d *Dataset) Name() string {
	return d.name
}

// Len returns the number of observations.
func (d *Dataset) Len() int {
	return len(d.index)
}

// NumColumns returns the number of columns.
func (d *Dataset) NumColumns() int {
	return len(d.columns)
}

// IsUnivariate reports whether the dataset has exactly one column.
func (d *Dataset) IsUnivariate() bool {
	return len(d.columns) == 1
}

// ColumnNames returns the column names in their original order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, col := range d.columns {
		names[i] = col.Name
	}
	return names
}

// Index returns a copy of the time index.
func (d *Dataset) Index() []time.Time {
	idx := make([]time.Time, len(d.index))
	copy(idx, d.index)
	return idx
}

// StartTime returns the first index entry.
func (d *Dataset) StartTime() time.Time {
	return d.index[0]
}

// EndTime returns the last index entry.
func (d *Dataset) EndTime() time.Time {
	return d.index[len(d.index)-1]
}

// Column returns a copy of the named column's values.
func (d *Dataset) Column(name string) ([]float64, error) {
	for _, col := range d.columns {
		if col.Name == name {
			values := make([]float64, len(col.Values))
			copy(values, col.Values)
			return values, nil
		}
	}
	return nil, errors.WrapError(errors.ErrColumnNotFound, errors.ErrorTypeDataset,
		errors.CodeColumnNotFound, fmt.Sprintf("column %q", name))
}

// Columns returns a copy of all columns in order.
func (d *Dataset) Columns() []Column {
	cols := make([]Column, len(d.columns))
	for i, col := range d.columns {
		values := make([]float64, len(col.Values))
		copy(values, col.Values)
		cols[i] = Column{Name: col.Name, Values: values}
	}
	return cols
}

// Univariate returns the values of the single column. It fails for
// multivariate datasets.
func (d *Dataset) Univariate() ([]float64, error) {
	if !d.IsUnivariate() {
		return nil, errors.WrapError(errors.ErrUnivariateOnly, errors.ErrorTypeDataset,
			errors.CodeUnivariateOnly,
			fmt.Sprintf("dataset has %d columns", len(d.columns)))
	}
	return d.Column(d.columns[0].Name)
}

// Row returns the values of every column at position i, in column order.
func (d *Dataset) Row(i int) []float64 {
	row := make([]float64, len(d.columns))
	for j, col := range d.columns {
		row[j] = col.Values[i]
	}
	return row
}

// Slice returns a new dataset covering positions [from, to).
func (d *Dataset) Slice(from, to int) (*Dataset, error) {
	if from < 0 || to > len(d.index) || from >= to {
		return nil, errors.NewDatasetError(errors.CodeEmptyDataset,
			fmt.Sprintf("invalid slice bounds [%d, %d) for %d observations", from, to, len(d.index)))
	}
	cols := make([]Column, len(d.columns))
	for i, col := range d.columns {
		cols[i] = Column{Name: col.Name, Values: col.Values[from:to]}
	}
	return NewDataset(d.name, d.index[from:to], cols)
}

// WithIndex returns a new dataset holding this dataset's columns re-indexed
// on the given timestamps. The index length must match.
func (d *Dataset) WithIndex(index []time.Time) (*Dataset, error) {
	return NewDataset(d.name, index, d.columns)
}
