package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/cpu"
	mpb "github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
	"github.com/xhhuango/json"

	"github.com/carlosbrown2/credit-spreads/journal"
	"github.com/carlosbrown2/credit-spreads/models"
	"github.com/carlosbrown2/credit-spreads/probability"
	spreadslack "github.com/carlosbrown2/credit-spreads/slack"
)

type evaluationRecord struct {
	Spread            models.Spread `json:"spread"`
	FinalPrincipal    float64       `json:"final_principal"`
	MeanOutcome       float64       `json:"mean_outcome"`
	VaR95             float64       `json:"var_95"`
	ExpectedShortfall float64       `json:"expected_shortfall_95"`
	Recommendation    string        `json:"recommendation"`
}

func main() {
	godotenv.Load()

	spreadKind := flag.String("type", "put", "spread type: put or call")
	principal := flag.Float64("principal", 10000, "liquid account principal")
	price := flag.Float64("price", 98, "current stock price")
	sigma := flag.Float64("sigma", 5, "std. dev. of the price at expiration")
	short := flag.Float64("short", 95, "short strike price")
	long := flag.Float64("long", 93, "long strike price")
	credit := flag.Float64("credit", 55, "total credit received")
	lots := flag.Int("lots", 1, "contract multiplier")
	trades := flag.Int("trades", 100000, "number of simulated trades")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "random seed")
	workers := flag.Int("workers", 0, "simulation workers (0 = NumCPU)")
	barsFile := flag.String("bars", "", "JSON file of daily OHLC bars used to estimate sigma")
	horizon := flag.Int("horizon", 21, "trading days to expiration for the sigma estimate")
	outFile := flag.String("out", "evaluation.json", "write the evaluation record to this file (empty to skip)")
	journalPath := flag.String("journal", os.Getenv("SPREAD_JOURNAL"), "SQLite journal path (empty to skip)")
	history := flag.Int("history", 0, "print the last N journal entries and exit")
	monitor := flag.Bool("monitor", false, "print CPU usage while simulating")
	slackMode := flag.Bool("slack", false, "run as a Slack bot instead of a one-shot CLI")
	flag.Parse()

	if *slackMode {
		bot := spreadslack.NewSlackBot(os.Getenv("SLACK_APP_TOKEN"), os.Getenv("SLACK_BOT_TOKEN"))
		if err := bot.Start(); err != nil {
			log.Fatalf("slack bot: %s", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *history > 0 {
		printHistory(ctx, *journalPath, *history)
		return
	}

	if *barsFile != "" {
		estimated, err := estimateSigma(*barsFile, *horizon)
		if err != nil {
			log.Fatalf("estimating sigma from %s: %s", *barsFile, err)
		}
		fmt.Printf("Estimated sigma over %d trading days: %.4f\n", *horizon, estimated)
		*sigma = estimated
	}

	spreadType := models.SpreadTypeBullPut
	if *spreadKind == "call" {
		spreadType = models.SpreadTypeBearCall
	}

	params := models.TradeParameters{
		Principal:   *principal,
		StockPrice:  *price,
		Sigma:       *sigma,
		ShortStrike: *short,
		LongStrike:  *long,
		Credit:      *credit,
		Lots:        *lots,
		NumTrades:   *trades,
	}

	spread, err := models.NewSpread(params, spreadType)
	if err != nil {
		log.Fatalf("cannot evaluate spread: %s", err)
	}

	fmt.Printf("Evaluating %s: short %.2f / long %.2f, credit %.2f, stock %.2f, sigma %.2f\n",
		spread.SpreadType, params.ShortStrike, params.LongStrike, params.Credit, params.StockPrice, params.Sigma)

	if *monitor {
		go monitorCPUUsage(ctx)
	}

	p := mpb.New(mpb.WithWidth(64))
	bar := p.AddBar(int64(params.NumTrades),
		mpb.PrependDecorators(
			decor.Name("Simulating"),
			decor.Percentage(decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("(%d / %d)", decor.WCSyncSpace),
		),
	)

	sim := probability.Simulator{Workers: *workers, Seed: *seed}
	start := time.Now()
	result, err := sim.Run(ctx, spread, func(n int) { bar.IncrBy(n) })
	if err != nil {
		log.Fatalf("simulation aborted: %s", err)
	}
	p.Wait()
	fmt.Printf("Simulated %d trades in %v\n", params.NumTrades, time.Since(start))

	record := evaluationRecord{
		Spread:            spread,
		FinalPrincipal:    result.FinalPrincipal,
		MeanOutcome:       result.MeanOutcome,
		VaR95:             probability.ValueAtRisk(result.Outcomes, 0.95),
		ExpectedShortfall: probability.ExpectedShortfall(result.Outcomes, 0.95),
		Recommendation:    probability.Recommend(spread, result),
	}

	printSummary(spread, record)

	if *outFile != "" {
		writeRecord(*outFile, record)
	}

	if *journalPath != "" {
		recordToJournal(ctx, *journalPath, spread, record)
	}
}

func printSummary(spread models.Spread, record evaluationRecord) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Metric", "Value")
	table.Append("Breakeven", fmt.Sprintf("%.2f", spread.Breakeven))
	table.Append("Probability of Profit", fmt.Sprintf("%.3f%%", spread.POP*100))
	table.Append("Max Loss", fmt.Sprintf("$%.2f", spread.MaxLoss))
	table.Append("Actual Allocation", fmt.Sprintf("%.2f%%", spread.Allocation()*100))
	table.Append("Kelly Allocation", fmt.Sprintf("%.2f%%", spread.Kelly*100))
	table.Append("Odds", fmt.Sprintf("%.4f", spread.Odds))
	table.Append("Expected Value", fmt.Sprintf("$%.2f", spread.EV))
	table.Append("VaR 95%", fmt.Sprintf("$%.2f", record.VaR95))
	table.Append("Expected Shortfall 95%", fmt.Sprintf("$%.2f", record.ExpectedShortfall))
	table.Append("Final Principal", fmt.Sprintf("$%.2f", record.FinalPrincipal))
	table.Render()

	fmt.Printf("\nTrade Recommendation: %s\n", record.Recommendation)
}

func estimateSigma(path string, horizonDays int) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var bars []models.Bar
	if err := json.Unmarshal(data, &bars); err != nil {
		return 0, fmt.Errorf("parsing bars: %w", err)
	}

	estimated, err := models.GarmanKlassSigma(bars, horizonDays)
	if err != nil {
		// OHLC ranges unusable, fall back to closes only
		return models.CloseToCloseSigma(bars, horizonDays)
	}
	return estimated, nil
}

func writeRecord(path string, record evaluationRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		fmt.Printf("Error marshalling evaluation: %s\n", err)
		return
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		fmt.Printf("Error writing to file %s: %s\n", path, err)
		return
	}

	fmt.Printf("Wrote evaluation to %s\n", path)
}

func recordToJournal(ctx context.Context, path string, spread models.Spread, record evaluationRecord) {
	j, err := journal.Open(path)
	if err != nil {
		fmt.Printf("Error opening journal: %s\n", err)
		return
	}
	defer j.Close()

	err = j.Record(ctx, journal.Entry{
		SpreadType:     spread.SpreadType,
		Params:         spread.Params,
		Breakeven:      spread.Breakeven,
		POP:            spread.POP,
		MaxLoss:        spread.MaxLoss,
		Odds:           spread.Odds,
		Kelly:          spread.Kelly,
		EV:             spread.EV,
		FinalPrincipal: record.FinalPrincipal,
		Recommendation: record.Recommendation,
	})
	if err != nil {
		fmt.Printf("Error recording evaluation: %s\n", err)
	}
}

func printHistory(ctx context.Context, path string, limit int) {
	if path == "" {
		log.Fatal("no journal path configured; set -journal or SPREAD_JOURNAL")
	}

	j, err := journal.Open(path)
	if err != nil {
		log.Fatalf("opening journal: %s", err)
	}
	defer j.Close()

	entries, err := j.Recent(ctx, limit)
	if err != nil {
		log.Fatalf("reading journal: %s", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("When", "Type", "Short/Long", "Credit", "POP", "Kelly", "EV", "Final", "Recommendation")
	for _, e := range entries {
		table.Append(
			e.EvaluatedAt.Format("2006-01-02 15:04"),
			e.SpreadType,
			fmt.Sprintf("%.2f/%.2f", e.Params.ShortStrike, e.Params.LongStrike),
			fmt.Sprintf("$%.2f", e.Params.Credit),
			fmt.Sprintf("%.3f", e.POP),
			fmt.Sprintf("%.4f", e.Kelly),
			fmt.Sprintf("$%.2f", e.EV),
			fmt.Sprintf("$%.2f", e.FinalPrincipal),
			e.Recommendation,
		)
	}
	table.Render()
}

func monitorCPUUsage(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			percentage, err := cpu.Percent(time.Second, false)
			if err == nil && len(percentage) > 0 {
				fmt.Printf("\nCPU Usage: %.2f%%\n", percentage[0])
			}
		}
	}
}
