package notify

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/agrisim/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
	now   func() time.Time
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table, now: time.Now}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table, now: time.Now}
}

// Notify imprime el análisis en el modo configurado.
func (c *Console) Notify(_ context.Context, r domain.AnalysisResult) error {
	if len(r.Scenarios) == 0 {
		fmt.Fprintf(c.out, "[%s] analysis %s: no scenarios\n", c.now().Format("15:04:05"), r.ID)
		return nil
	}
	if c.table {
		c.printFull(r)
	} else {
		c.printCompact(r)
	}
	return nil
}

// printCompact imprime lo esencial en una línea más las recomendaciones clave.
func (c *Console) printCompact(r domain.AnalysisResult) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s %s %.0fac → %d scen",
		c.now().Format("15:04:05"), r.Request.CropType, regionLabel(r.Request.Region),
		r.Request.FieldAcres, len(r.Scenarios))

	agg := r.MonteCarlo.Aggregate
	fmt.Fprintf(&sb, " | E[profit] %s PoP %.0f%%", money(agg.ExpectedProfit), agg.ProbabilityOfProfit*100)

	if best, ok := r.BestScenario(); ok {
		fmt.Fprintf(&sb, " | best %s %s", best.ID, money(best.Metrics.NetProfit))
	}
	if worst, ok := r.WorstScenario(); ok {
		fmt.Fprintf(&sb, " | worst %s %s", worst.ID, money(worst.Metrics.NetProfit))
	}
	if len(r.Priorities) > 0 {
		top := r.Priorities[0]
		fmt.Fprintf(&sb, " | top %s (%s)", top.ScenarioID, top.Level)
	}
	if r.Status != domain.StatusCompleted {
		fmt.Fprintf(&sb, " | %s", strings.ToUpper(string(r.Status)))
	}
	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime las tablas de escenarios, distribución y prioridades.
func (c *Console) printFull(r domain.AnalysisResult) {
	fmt.Fprintf(c.out, "\n[%s] analysis %s: %s, %s, %.0f acres, %d scenarios (%s, %s)\n",
		c.now().Format("15:04:05"), r.ID, r.Request.CropType, regionLabel(r.Request.Region),
		r.Request.FieldAcres, len(r.Scenarios), r.Status, r.Duration.Round(time.Millisecond))

	c.printScenarios(r)
	c.printDistributions(r)
	c.printPriorities(r)
	c.printBudget(r)
	c.printRecommendations(r)

	if len(r.Errors) > 0 {
		fmt.Fprintln(c.out, "\n=== NOT COMPUTED ===")
		for _, e := range r.Errors {
			fmt.Fprintf(c.out, "  ⚠ %s\n", e)
		}
	}
	fmt.Fprintln(c.out)
}

func (c *Console) printScenarios(r domain.AnalysisResult) {
	fmt.Fprintln(c.out, "\n=== SCENARIOS ===")
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Scenario", "Prob", "Cost", "Revenue", "Profit", "Margin", "ROI", "Risk")

	for i, s := range r.Scenarios {
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(s.Name, 24),
			fmt.Sprintf("%.0f%%", s.Distribution.Probability*100),
			money(s.Metrics.TotalCost),
			money(s.Metrics.TotalRevenue),
			money(s.Metrics.NetProfit),
			fmt.Sprintf("%.1f%%", s.Metrics.MarginPct),
			fmt.Sprintf("%.0f%%", s.Metrics.ROIPct),
			string(s.Risk.Level),
		)
	}
	table.Render()
}

func (c *Console) printDistributions(r domain.AnalysisResult) {
	if len(r.MonteCarlo.Scenarios) == 0 {
		return
	}
	fmt.Fprintf(c.out, "\n=== MONTE CARLO (%d iterations, seed %d) ===\n", r.MonteCarlo.Iterations, r.MonteCarlo.Seed)
	table := tablewriter.NewWriter(c.out)
	table.Header("Scenario", "Mean", "Median", "StdDev", "P(profit)", "VaR95", "Widest CI")

	for _, d := range r.MonteCarlo.Scenarios {
		ci := "-"
		if n := len(d.ConfidenceIntervals); n > 0 {
			w := d.ConfidenceIntervals[n-1]
			ci = fmt.Sprintf("%.0f%%: %s … %s", w.Level*100, money(w.Lower), money(w.Upper))
		}
		table.Append(
			d.ScenarioID,
			money(d.Mean),
			money(d.Median),
			money(d.StdDev),
			fmt.Sprintf("%.1f%%", d.ProbabilityOfProfit*100),
			money(d.ValueAtRisk95),
			ci,
		)
	}
	table.Render()

	agg := r.MonteCarlo.Aggregate
	fmt.Fprintf(c.out, "  Expected (%s): %s | P(profit): %.1f%% | range %s … %s\n",
		agg.Weighting, money(agg.ExpectedProfit), agg.ProbabilityOfProfit*100,
		money(agg.WorstCase), money(agg.BestCase))

	if len(r.Sensitivity.CriticalParameters) > 0 {
		names := make([]string, len(r.Sensitivity.CriticalParameters))
		for i, p := range r.Sensitivity.CriticalParameters {
			names[i] = string(p)
		}
		fmt.Fprintf(c.out, "  Critical parameters (%s): %s\n",
			r.Sensitivity.ReferenceScenarioID, strings.Join(names, ", "))
	}
}

func (c *Console) printPriorities(r domain.AnalysisResult) {
	if len(r.Priorities) == 0 {
		return
	}
	fmt.Fprintln(c.out, "\n=== INVESTMENT PRIORITIES ===")
	table := tablewriter.NewWriter(c.out)
	table.Header("Rank", "Scenario", "Score", "Level", "RA profit", "Payback", "Opp. cost", "Conf")

	for _, p := range r.Priorities {
		payback := "never"
		if p.PaybackReachable {
			payback = fmt.Sprintf("%.1f mo", p.PaybackMonths)
		}
		table.Append(
			fmt.Sprintf("%d", p.Rank),
			p.ScenarioID,
			fmt.Sprintf("%.2f", p.Score),
			strings.ToUpper(string(p.Level)),
			money(p.RiskAdjustedReturn),
			payback,
			money(p.OpportunityCost),
			fmt.Sprintf("%.0f%%", p.Confidence*100),
		)
	}
	table.Render()
}

func (c *Console) printBudget(r domain.AnalysisResult) {
	if len(r.Budgets) == 0 {
		return
	}
	b := r.Budgets[0]
	parts := make([]string, len(b.Breakdown))
	for i, a := range b.Breakdown {
		parts[i] = fmt.Sprintf("%s %s", a.Category, money(a.Amount))
	}
	fmt.Fprintf(c.out, "\n  Budget %s (%s/acre): %s\n", money(b.TotalBudget), money2(b.PerAcre), strings.Join(parts, " | "))

	var over []string
	for _, a := range r.Budgets {
		if a.Overcommitted {
			over = append(over, a.ScenarioID)
		}
	}
	if len(over) > 0 {
		fmt.Fprintf(c.out, "  ⚠ Overcommitted: %s\n", strings.Join(over, ", "))
	}
}

func (c *Console) printRecommendations(r domain.AnalysisResult) {
	if len(r.Recommendations) == 0 {
		return
	}
	fmt.Fprintln(c.out, "\n=== RECOMMENDATIONS ===")
	for i, rec := range r.Recommendations {
		fmt.Fprintf(c.out, "  %d. %s\n", i+1, rec)
	}
}

// PrintHistory imprime la tabla de análisis guardados.
func (c *Console) PrintHistory(rows []domain.AnalysisSummary) {
	if len(rows) == 0 {
		fmt.Fprintln(c.out, "No stored analyses")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("ID", "Date", "Crop", "Region", "Acres", "Status", "Best", "Best profit", "E[profit]")
	for _, s := range rows {
		table.Append(
			s.ID,
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
			s.CropType,
			regionLabel(s.Region),
			fmt.Sprintf("%.0f", s.FieldAcres),
			string(s.Status),
			s.BestScenario,
			money(s.BestProfit),
			money(s.ExpectedProfit),
		)
	}
	table.Render()
}

// PrintTrend imprime la evolución del beneficio de un escenario.
func (c *Console) PrintTrend(crop, scenarioID string, profits []float64) {
	if len(profits) == 0 {
		fmt.Fprintf(c.out, "No history for %s/%s\n", crop, scenarioID)
		return
	}
	labels := make([]string, len(profits))
	for i, p := range profits {
		labels[i] = money(p)
	}
	fmt.Fprintf(c.out, "%s/%s (oldest → newest): %s\n", crop, scenarioID, strings.Join(labels, " → "))
	if len(profits) > 1 && profits[0] != 0 {
		change := (profits[len(profits)-1] - profits[0]) / math.Abs(profits[0]) * 100
		fmt.Fprintf(c.out, "  change %+.1f%% (%s)\n", change, domain.ClassifyTrend(change))
	}
}

// --- helpers ---

// money formatea dólares sin decimales con separador de miles.
func money(v float64) string {
	s := "$" + humanize.Commaf(math.Abs(math.Round(v)))
	if math.Round(v) < 0 {
		return "-" + s
	}
	return s
}

// money2 es money con centavos.
func money2(v float64) string {
	s := "$" + humanize.CommafWithDigits(math.Abs(v), 2)
	if v < 0 {
		return "-" + s
	}
	return s
}

func regionLabel(r string) string {
	if r == "" {
		return "-"
	}
	return r
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
