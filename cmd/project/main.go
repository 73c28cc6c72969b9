// Command project runs a plan document through the engine without a server.
//
//	project -plan plan.yaml
//	project -plan plan.json -format json -out result.json
//	project -plan plan.hjson -horizon 120
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/warp/projection-engine/config"
	"github.com/warp/projection-engine/factory"
	"github.com/warp/projection-engine/generic"
	"github.com/warp/projection-engine/logging"
	"github.com/warp/projection-engine/plan"
	"go.uber.org/zap"
)

func main() {
	planPath := flag.String("plan", "", "plan document (.json, .yaml, .hjson)")
	configPath := flag.String("config", "", "YAML config file")
	horizon := flag.Int("horizon", 0, "override the plan horizon in months")
	format := flag.String("format", "table", "output format: table or json")
	outPath := flag.String("out", "", "write output to this file instead of stdout")
	flag.Parse()

	if *planPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	p, err := factory.LoadFile(*planPath)
	if err != nil {
		logger.Fatal("failed to load plan", zap.String("path", *planPath), zap.Error(err))
	}

	pc := p.Config
	if *horizon > 0 {
		pc.HorizonMonths = *horizon
	}
	if pc.HorizonMonths == 0 {
		pc.HorizonMonths = cfg.Engine.HorizonMonths
	}
	if pc.TaxRate == nil {
		rate := generic.Dec(cfg.Engine.TaxRate)
		pc.TaxRate = &rate
	}

	result, err := plan.NewEngine(logger.Named("engine")).Run(context.Background(), pc)
	if err != nil {
		logger.Fatal("projection failed", zap.String("plan", p.ID), zap.Error(err))
	}

	var out io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			logger.Fatal("failed to create output", zap.Error(err))
		}
		defer f.Close()
		out = f
	}

	switch *format {
	case "json":
		err = writeJSON(out, p, result)
	case "table":
		err = writeTable(out, p, result)
	default:
		err = fmt.Errorf("unknown format %q", *format)
	}
	if err != nil {
		logger.Fatal("failed to write output", zap.Error(err))
	}
}

type jsonDocument struct {
	PlanID        string      `json:"plan_id"`
	PlanName      string      `json:"plan_name,omitempty"`
	HorizonMonths int         `json:"horizon_months"`
	StartMonth    string      `json:"start_month,omitempty"`
	Monthly       jsonMonthly `json:"monthly"`
	Years         []jsonYear  `json:"years"`
	Summary       jsonSummary `json:"summary"`
}

type jsonMonthly struct {
	Labels     []string                     `json:"labels"`
	Branches   []int                        `json:"branches"`
	Revenue    []decimal.Decimal            `json:"revenue"`
	Opex       []decimal.Decimal            `json:"opex"`
	PnL        []jsonMonth                  `json:"pnl"`
	ByStream   map[string][]decimal.Decimal `json:"by_stream"`
	ByCategory map[string][]decimal.Decimal `json:"by_category"`
}

type jsonMonth struct {
	Month        int             `json:"month"`
	Revenue      decimal.Decimal `json:"revenue"`
	Opex         decimal.Decimal `json:"opex"`
	Ebitda       decimal.Decimal `json:"ebitda"`
	EbitdaMargin decimal.Decimal `json:"ebitda_margin"`
	Tax          decimal.Decimal `json:"tax"`
	Pat          decimal.Decimal `json:"pat"`
}

type jsonYear struct {
	Label           string                     `json:"label"`
	Months          int                        `json:"months"`
	Revenue         decimal.Decimal            `json:"revenue"`
	Opex            decimal.Decimal            `json:"opex"`
	Ebitda          decimal.Decimal            `json:"ebitda"`
	EbitdaMargin    decimal.Decimal            `json:"ebitda_margin"`
	Depreciation    decimal.Decimal            `json:"depreciation"`
	Pbt             decimal.Decimal            `json:"pbt"`
	Tax             decimal.Decimal            `json:"tax"`
	Pat             decimal.Decimal            `json:"pat"`
	PatMargin       decimal.Decimal            `json:"pat_margin"`
	RevenueGrowth   decimal.Decimal            `json:"revenue_growth"`
	OpexGrowth      decimal.Decimal            `json:"opex_growth"`
	RevenueByStream map[string]decimal.Decimal `json:"revenue_by_stream"`
	OpexByCategory  map[string]decimal.Decimal `json:"opex_by_category"`
}

type jsonSummary struct {
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TotalOpex       decimal.Decimal `json:"total_opex"`
	TotalEbitda     decimal.Decimal `json:"total_ebitda"`
	TotalPat        decimal.Decimal `json:"total_pat"`
	AvgEbitdaMargin decimal.Decimal `json:"avg_ebitda_margin"`
	RevenueCagr     decimal.Decimal `json:"revenue_cagr"`
	BreakEvenYear   *int            `json:"break_even_year"`
	PeakRevenue     decimal.Decimal `json:"peak_revenue"`
	PeakPat         decimal.Decimal `json:"peak_pat"`
}

func seriesMap(in map[string]generic.Series) map[string][]decimal.Decimal {
	out := make(map[string][]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func buildDocument(p *factory.Plan, result *plan.Projection) jsonDocument {
	branches := make([]int, 0, result.Schedule.Len())
	for _, e := range result.Schedule.Entries() {
		branches = append(branches, e.Branches)
	}

	months := make([]jsonMonth, 0, len(result.Monthly.PnL))
	for _, m := range result.Monthly.PnL {
		months = append(months, jsonMonth{
			Month:        m.Month,
			Revenue:      m.Revenue,
			Opex:         m.Opex,
			Ebitda:       m.Ebitda,
			EbitdaMargin: m.EbitdaMargin,
			Tax:          m.Tax,
			Pat:          m.Pat,
		})
	}

	years := make([]jsonYear, 0, len(result.Yearly.PnL))
	for i, y := range result.Yearly.PnL {
		var n int
		if i < len(result.Yearly.Months) {
			n = result.Yearly.Months[i]
		}
		years = append(years, jsonYear{
			Label:           y.Label,
			Months:          n,
			Revenue:         y.Revenue,
			Opex:            y.Opex,
			Ebitda:          y.Ebitda,
			EbitdaMargin:    y.EbitdaMargin,
			Depreciation:    y.Depreciation,
			Pbt:             y.Pbt,
			Tax:             y.Tax,
			Pat:             y.Pat,
			PatMargin:       y.PatMargin,
			RevenueGrowth:   y.RevenueGrowth,
			OpexGrowth:      y.OpexGrowth,
			RevenueByStream: y.RevenueByStream,
			OpexByCategory:  y.OpexByCategory,
		})
	}

	s := result.Summary
	return jsonDocument{
		PlanID:        p.ID,
		PlanName:      p.Name,
		HorizonMonths: result.HorizonMonths,
		StartMonth:    result.Calendar.String(),
		Monthly: jsonMonthly{
			Labels:     result.Monthly.Labels,
			Branches:   branches,
			Revenue:    result.Monthly.Revenue,
			Opex:       result.Monthly.Opex,
			PnL:        months,
			ByStream:   seriesMap(result.Monthly.ByStream),
			ByCategory: seriesMap(result.Monthly.ByCategory),
		},
		Years: years,
		Summary: jsonSummary{
			TotalRevenue:    s.TotalRevenue,
			TotalOpex:       s.TotalOpex,
			TotalEbitda:     s.TotalEbitda,
			TotalPat:        s.TotalPat,
			AvgEbitdaMargin: s.AvgEbitdaMargin,
			RevenueCagr:     s.RevenueCagr,
			BreakEvenYear:   s.BreakEvenYear,
			PeakRevenue:     s.PeakRevenue,
			PeakPat:         s.PeakPat,
		},
	}
}

// writeJSON prints decimals as exact strings, unlike the API which uses
// numbers for spreadsheet clients.
func writeJSON(w io.Writer, p *factory.Plan, result *plan.Projection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(buildDocument(p, result))
}

func writeTable(w io.Writer, p *factory.Plan, result *plan.Projection) error {
	name := p.Name
	if name == "" {
		name = p.ID
	}
	fmt.Fprintf(w, "%s (%d months from %s)\n\n", name, result.HorizonMonths, result.Calendar)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Year\tRevenue\tOpex\tEBITDA\tMargin %\tDepreciation\tPBT\tTax\tPAT\t")
	for i, y := range result.Yearly.PnL {
		label := y.Label
		if i < len(result.Yearly.Labels) {
			label = result.Yearly.Labels[i]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			label,
			y.Revenue.StringFixed(2),
			y.Opex.StringFixed(2),
			y.Ebitda.StringFixed(2),
			y.EbitdaMargin.StringFixed(2),
			y.Depreciation.StringFixed(2),
			y.Pbt.StringFixed(2),
			y.Tax.StringFixed(2),
			y.Pat.StringFixed(2),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(result.Yearly.PnL) > 0 {
		last := result.Yearly.PnL[len(result.Yearly.PnL)-1]
		streams := make([]string, 0, len(last.RevenueByStream))
		for k := range last.RevenueByStream {
			streams = append(streams, k)
		}
		sort.Strings(streams)
		fmt.Fprintf(w, "\n%s revenue by stream:\n", last.Label)
		for _, k := range streams {
			fmt.Fprintf(w, "  %-24s %s\n", k, last.RevenueByStream[k].StringFixed(2))
		}
	}

	s := result.Summary
	breakEven := "never"
	if s.BreakEvenYear != nil {
		breakEven = fmt.Sprintf("Y%d", *s.BreakEvenYear)
	}
	fmt.Fprintf(w, "\nTotal revenue:      %s\n", s.TotalRevenue.StringFixed(2))
	fmt.Fprintf(w, "Total PAT:          %s\n", s.TotalPat.StringFixed(2))
	fmt.Fprintf(w, "Avg EBITDA margin:  %s%%\n", s.AvgEbitdaMargin.StringFixed(2))
	fmt.Fprintf(w, "Revenue CAGR:       %s%%\n", s.RevenueCagr.StringFixed(2))
	fmt.Fprintf(w, "Break-even:         %s\n", breakEven)
	return nil
}
