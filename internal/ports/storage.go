package ports

import (
	"context"

	"github.com/alejandrodnm/agrisim/internal/domain"
)

// AnalysisStorage persiste los resultados de cada análisis.
// The engine only hands it serializable results; connections and
// transactions are the adapter's business.
type AnalysisStorage interface {
	// Store persists a completed analysis. Storing the same ID twice replaces it.
	Store(ctx context.Context, result domain.AnalysisResult) error

	// Fetch returns the analysis with the given ID; found=false if absent.
	Fetch(ctx context.Context, id string) (result domain.AnalysisResult, found bool, err error)

	// List returns summaries matching the filter, newest first.
	List(ctx context.Context, filter domain.AnalysisFilter) ([]domain.AnalysisSummary, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
