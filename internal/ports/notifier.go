package ports

import (
	"context"

	"github.com/alejandrodnm/agrisim/internal/domain"
)

// Notifier presenta el resultado del análisis al usuario.
type Notifier interface {
	// Notify renders the analysis. In the console implementation it prints
	// scenario, distribution and priority tables plus the recommendations.
	Notify(ctx context.Context, result domain.AnalysisResult) error
}
