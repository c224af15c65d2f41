package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/alejandrodnm/agrisim/internal/adapters/notify"
	"github.com/alejandrodnm/agrisim/internal/adapters/storage"
	"github.com/alejandrodnm/agrisim/internal/domain"
)

type historyQuery struct {
	showID  string
	trendID string
	crop    string
	limit   int
	jsonOut bool
}

// runHistory atiende -history, -show y -trend sobre la base SQLite.
func runHistory(ctx context.Context, store *storage.SQLiteStorage, console *notify.Console, q historyQuery) int {
	switch {
	case q.showID != "":
		r, found, err := store.Fetch(ctx, q.showID)
		if err != nil {
			slog.Error("fetch failed", "id", q.showID, "err", err)
			return exitFailure
		}
		if !found {
			slog.Error("analysis not found", "id", q.showID)
			return exitInput
		}
		if q.jsonOut {
			return writeJSON(r)
		}
		// -show siempre imprime las tablas completas.
		if err := notify.NewConsole(true).Notify(ctx, r); err != nil {
			slog.Warn("notifier error", "err", err)
		}
		return exitOK

	case q.trendID != "":
		if q.crop == "" {
			slog.Error("-trend needs -crop")
			return exitInput
		}
		profits, err := store.ScenarioTrend(ctx, q.crop, q.trendID, q.limit)
		if err != nil {
			slog.Error("trend query failed", "err", err)
			return exitFailure
		}
		if q.jsonOut {
			return writeJSON(profits)
		}
		console.PrintTrend(q.crop, q.trendID, profits)
		return exitOK

	default:
		rows, err := store.List(ctx, domain.AnalysisFilter{CropType: q.crop, Limit: q.limit})
		if err != nil {
			slog.Error("history query failed", "err", err)
			return exitFailure
		}
		if q.jsonOut {
			return writeJSON(rows)
		}
		console.PrintHistory(rows)
		return exitOK
	}
}

func writeJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("failed to encode output", "err", err)
		return exitFailure
	}
	return exitOK
}
