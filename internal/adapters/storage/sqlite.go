package storage

// sqlite.go: histórico de análisis.
//
// Estrategia:
//   - `analyses`: una fila por análisis (UPSERT por id). Columnas de resumen
//     para listar y filtrar sin deserializar, más el resultado completo en JSON.
//   - `scenario_outcomes`: una fila por escenario con las cifras que se
//     comparan entre análisis (beneficio, PoP, riesgo, prioridad).
//   - Prune automático al arrancar: análisis de más de 180 días.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/agrisim/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
    id              TEXT PRIMARY KEY,
    created_at      INTEGER NOT NULL,
    status          TEXT    NOT NULL,
    crop_type       TEXT    NOT NULL,
    region          TEXT    NOT NULL DEFAULT '',
    field_acres     REAL    NOT NULL DEFAULT 0,
    scenario_count  INTEGER NOT NULL DEFAULT 0,
    best_scenario   TEXT    NOT NULL DEFAULT '',
    best_profit     REAL    NOT NULL DEFAULT 0,
    expected_profit REAL    NOT NULL DEFAULT 0,
    payload         TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS scenario_outcomes (
    analysis_id     TEXT    NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
    scenario_id     TEXT    NOT NULL,
    net_profit      REAL    NOT NULL DEFAULT 0,
    expected_profit REAL    NOT NULL DEFAULT 0,
    prob_of_profit  REAL    NOT NULL DEFAULT 0,
    risk_level      TEXT    NOT NULL DEFAULT '',
    priority_score  REAL    NOT NULL DEFAULT 0,
    PRIMARY KEY (analysis_id, scenario_id)
);

CREATE INDEX IF NOT EXISTS idx_analyses_at   ON analyses(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_analyses_crop ON analyses(crop_type, region);
`

// retention: análisis más antiguos se borran al abrir la DB.
const retention = 180 * 24 * time.Hour

// SQLiteStorage implementa ports.AnalysisStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia datos antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background(), time.Now())
	return s, nil
}

// Store persiste el análisis. Guardar el mismo ID dos veces lo reemplaza.
func (s *SQLiteStorage) Store(ctx context.Context, r domain.AnalysisResult) error {
	if r.ID == "" {
		return fmt.Errorf("storage.Store: empty analysis id")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("storage.Store: marshal %s: %w", r.ID, err)
	}
	sum := r.Summarize()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.Store: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO analyses
			(id, created_at, status, crop_type, region, field_acres, scenario_count,
			 best_scenario, best_profit, expected_profit, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at      = excluded.created_at,
			status          = excluded.status,
			crop_type       = excluded.crop_type,
			region          = excluded.region,
			field_acres     = excluded.field_acres,
			scenario_count  = excluded.scenario_count,
			best_scenario   = excluded.best_scenario,
			best_profit     = excluded.best_profit,
			expected_profit = excluded.expected_profit,
			payload         = excluded.payload
	`,
		sum.ID,
		sum.CreatedAt.UTC().UnixNano(),
		string(sum.Status),
		sum.CropType,
		sum.Region,
		sum.FieldAcres,
		sum.ScenarioCount,
		sum.BestScenario,
		sum.BestProfit,
		sum.ExpectedProfit,
		string(payload),
	); err != nil {
		return fmt.Errorf("storage.Store: upsert %s: %w", r.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM scenario_outcomes WHERE analysis_id = ?`, r.ID); err != nil {
		return fmt.Errorf("storage.Store: clear outcomes %s: %w", r.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scenario_outcomes
			(analysis_id, scenario_id, net_profit, expected_profit, prob_of_profit, risk_level, priority_score)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.Store: prepare: %w", err)
	}
	defer stmt.Close()

	for _, o := range scenarioOutcomes(r) {
		if _, err := stmt.ExecContext(ctx,
			r.ID, o.scenarioID, o.netProfit, o.expectedProfit, o.probOfProfit, o.riskLevel, o.priority,
		); err != nil {
			return fmt.Errorf("storage.Store: insert outcome %s/%s: %w", r.ID, o.scenarioID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.Store: commit: %w", err)
	}
	return nil
}

// Fetch devuelve el análisis completo; found=false si no existe.
func (s *SQLiteStorage) Fetch(ctx context.Context, id string) (domain.AnalysisResult, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM analyses WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return domain.AnalysisResult{}, false, nil
	}
	if err != nil {
		return domain.AnalysisResult{}, false, fmt.Errorf("storage.Fetch: query %s: %w", id, err)
	}
	var r domain.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return domain.AnalysisResult{}, false, fmt.Errorf("storage.Fetch: decode %s: %w", id, err)
	}
	return r, true, nil
}

// List devuelve resúmenes que cumplen el filtro, los más recientes primero.
func (s *SQLiteStorage) List(ctx context.Context, f domain.AnalysisFilter) ([]domain.AnalysisSummary, error) {
	var (
		where []string
		args  []any
	)
	if f.CropType != "" {
		where = append(where, "crop_type = ?")
		args = append(args, strings.ToLower(f.CropType))
	}
	if f.Region != "" {
		where = append(where, "region = ?")
		args = append(args, f.Region)
	}
	if !f.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.From.UTC().UnixNano())
	}
	if !f.To.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, f.To.UTC().UnixNano())
	}

	q := `SELECT id, created_at, status, crop_type, region, field_acres, scenario_count,
	             best_scenario, best_profit, expected_profit
	      FROM analyses`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.List: query: %w", err)
	}
	defer rows.Close()

	var out []domain.AnalysisSummary
	for rows.Next() {
		var (
			sum     domain.AnalysisSummary
			created int64
			status  string
		)
		if err := rows.Scan(
			&sum.ID,
			&created,
			&status,
			&sum.CropType,
			&sum.Region,
			&sum.FieldAcres,
			&sum.ScenarioCount,
			&sum.BestScenario,
			&sum.BestProfit,
			&sum.ExpectedProfit,
		); err != nil {
			return nil, fmt.Errorf("storage.List: scan row: %w", err)
		}
		sum.CreatedAt = time.Unix(0, created).UTC()
		sum.Status = domain.AnalysisStatus(status)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// ScenarioTrend devuelve el beneficio neto de un escenario en los últimos
// análisis de un cultivo, del más antiguo al más reciente.
func (s *SQLiteStorage) ScenarioTrend(ctx context.Context, cropType, scenarioID string, limit int) ([]float64, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.net_profit
		FROM scenario_outcomes o
		JOIN analyses a ON a.id = o.analysis_id
		WHERE a.crop_type = ? AND o.scenario_id = ?
		ORDER BY a.created_at DESC
		LIMIT ?
	`, strings.ToLower(cropType), scenarioID, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ScenarioTrend: query: %w", err)
	}
	defer rows.Close()

	var profits []float64
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("storage.ScenarioTrend: scan row: %w", err)
		}
		profits = append(profits, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.ScenarioTrend: %w", err)
	}
	for i, j := 0, len(profits)-1; i < j; i, j = i+1, j-1 {
		profits[i], profits[j] = profits[j], profits[i]
	}
	return profits, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

type outcome struct {
	scenarioID     string
	netProfit      float64
	expectedProfit float64
	probOfProfit   float64
	riskLevel      string
	priority       float64
}

// scenarioOutcomes junta por scenario ID las cifras repartidas en el resultado.
func scenarioOutcomes(r domain.AnalysisResult) []outcome {
	out := make([]outcome, len(r.Scenarios))
	idx := make(map[string]int, len(r.Scenarios))
	for i, sc := range r.Scenarios {
		out[i] = outcome{scenarioID: sc.ID, netProfit: sc.Metrics.NetProfit}
		idx[sc.ID] = i
		if d, ok := r.MonteCarlo.Scenario(sc.ID); ok {
			out[i].expectedProfit = d.Mean
			out[i].probOfProfit = d.ProbabilityOfProfit
		}
	}
	for _, ra := range r.Risks {
		if i, ok := idx[ra.ScenarioID]; ok {
			out[i].riskLevel = string(ra.Level)
		}
	}
	for _, p := range r.Priorities {
		if i, ok := idx[p.ScenarioID]; ok {
			out[i].priority = p.Score
		}
	}
	return out
}

// pruneOld elimina análisis antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context, now time.Time) {
	cutoff := now.UTC().Add(-retention).UnixNano()
	s.db.ExecContext(ctx, `DELETE FROM analyses WHERE created_at < ?`, cutoff)
}
