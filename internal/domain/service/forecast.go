package service

import (
	"context"

	"ChainPull/internal/domain/models"
	domrepo "ChainPull/internal/domain/repository"
)

// Forecaster labels a candle series. The series carries the stored window
// plus one synthetic forward row; the result maps open times to opaque label
// values.
type Forecaster interface {
	Forecast(ctx context.Context, series []models.Candle, spec domrepo.Spec) (models.LabelMap, error)
}
