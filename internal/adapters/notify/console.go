package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alejandrodnm/arbscan/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// maxCompact es cuántas oportunidades se listan en modo compacto.
const maxCompact = 4

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime el resultado del ciclo en el modo configurado.
func (c *Console) Notify(_ context.Context, snap domain.AnalysisSnapshot) error {
	if len(snap.Opportunities) == 0 {
		fmt.Fprintf(c.out, "[%s] %s — no opportunities found\n", clock(snap.LastUpdated), pricesLine(snap))
		return nil
	}

	if c.table {
		c.printFull(snap)
	} else {
		c.printCompact(snap)
	}
	return nil
}

// PrintHistory imprime oportunidades históricas (arbscan -history).
func (c *Console) PrintHistory(opps []domain.ArbitrageOpportunity) {
	if len(opps) == 0 {
		fmt.Fprintln(c.out, "no opportunities in range")
		return
	}
	c.printTable(opps, true)
	s := domain.Summarize(opps)
	fmt.Fprintf(c.out, "  %d opportunities | best %.2f%% | avg %.2f%% | total est. $%.2f\n",
		s.TotalOpportunities, s.BestSpread, s.AverageSpread, s.TotalEstimatedProfit)
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(snap domain.AnalysisSnapshot) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s opps:%d best:%.2f%%",
		clock(snap.LastUpdated), pricesLine(snap), snap.Summary.TotalOpportunities, snap.Summary.BestSpread)

	for i, o := range snap.Opportunities {
		if i >= maxCompact {
			fmt.Fprintf(&sb, " | +%d more", len(snap.Opportunities)-maxCompact)
			break
		}
		fmt.Fprintf(&sb, " | %s buy %s@%s sell %s@%s +$%.2f",
			o.BaseSymbol, o.BuySource, price(o.BuyPrice), o.SellSource, price(o.SellPrice), o.EstimatedProfit)
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla completa con el resumen del ciclo.
func (c *Console) printFull(snap domain.AnalysisSnapshot) {
	fmt.Fprintf(c.out, "\n[%s] %d opportunities — %s\n",
		clock(snap.LastUpdated), snap.Summary.TotalOpportunities, pricesLine(snap))

	c.printTable(snap.Opportunities, false)

	s := snap.Summary
	fmt.Fprintf(c.out, "  best %.2f%% | avg %.2f%% | total est. $%.2f (notional heuristic, no fees/gas/slippage)\n",
		s.BestSpread, s.AverageSpread, s.TotalEstimatedProfit)

	if degraded := degradedSymbols(snap.PriceData.Pool); len(degraded) > 0 {
		fmt.Fprintf(c.out, "  WARNING: pool price for %s resolved by token0 fallback\n", strings.Join(degraded, ", "))
	}
	if r := snap.Metadata.Rejected; r != (domain.RejectedCounts{}) {
		fmt.Fprintf(c.out, "  rejected: %d invalid, %d not found, %d source errors\n",
			r.Validation, r.NotFound, r.SourceErrors)
	}
}

func (c *Console) printTable(opps []domain.ArbitrageOpportunity, withTime bool) {
	table := tablewriter.NewWriter(c.out)
	header := []any{"#", "Pair", "Buy", "Sell", "Spread", "Est. profit", "Conf"}
	if withTime {
		header = append(header, "Detected")
	}
	table.Header(header...)

	for i, o := range opps {
		row := []any{
			fmt.Sprintf("%d", i+1),
			o.BaseSymbol + "/" + o.QuoteSymbol,
			fmt.Sprintf("%s %s", o.BuySource, price(o.BuyPrice)),
			fmt.Sprintf("%s %s", o.SellSource, price(o.SellPrice)),
			fmt.Sprintf("%.2f%%", o.SpreadPercent),
			fmt.Sprintf("$%.2f", o.EstimatedProfit),
			fmt.Sprintf("%.2f", o.Confidence),
		}
		if withTime {
			row = append(row, o.DetectedAt)
		}
		table.Append(row...)
	}

	table.Render()
}

// --- helpers ---

func pricesLine(snap domain.AnalysisSnapshot) string {
	return fmt.Sprintf("%d tokens → oracle:%d pool:%d",
		len(snap.Metadata.TokensAnalyzed), len(snap.PriceData.Oracle), len(snap.PriceData.Pool))
}

func degradedSymbols(prices []domain.NormalizedPrice) []string {
	var out []string
	for _, p := range prices {
		if p.Degraded {
			out = append(out, p.Symbol)
		}
	}
	return out
}

// price ajusta los decimales a la magnitud: stablecoins necesitan más precisión.
func price(v float64) string {
	switch {
	case v >= 1000:
		return fmt.Sprintf("%.2f", v)
	case v >= 1:
		return fmt.Sprintf("%.4f", v)
	default:
		return fmt.Sprintf("%.6f", v)
	}
}

// clock devuelve la hora HH:MM:SS de un timestamp ISO8601, o el texto tal cual.
func clock(ts string) string {
	t, err := domain.ParseTimestamp(ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}
