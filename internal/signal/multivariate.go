package signal

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// MultivariateAnalysis drives the same workflow over a multi-column frame:
// models receive every column, predictions preserve the column list, and each
// model is scored with a single metric set pooled across all columns.
type MultivariateAnalysis struct {
	*Analysis
}

// NewMultivariateAnalysis creates an analysis over a frame with at least two
// columns.
func NewMultivariateAnalysis(ds *models.Dataset, logger *logrus.Logger) (*MultivariateAnalysis, error) {
	if ds == nil {
		return nil, errors.NewValidationError(errors.CodeEmptyDataset, "analysis requires a dataset")
	}
	if ds.NumColumns() < 2 {
		return nil, errors.NewValidationError(errors.CodeColumnMismatch,
			fmt.Sprintf("multivariate analysis requires at least two columns, got %d", ds.NumColumns()))
	}
	return &MultivariateAnalysis{Analysis: newAnalysis(ds, logger)}, nil
}
