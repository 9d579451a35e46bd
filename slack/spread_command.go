package spreadslack

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/carlosbrown2/credit-spreads/models"
	"github.com/carlosbrown2/credit-spreads/probability"
)

const defaultNumTrades = 100000

type SpreadHandler struct{}

func NewSpreadHandler() *SpreadHandler {
	return &SpreadHandler{}
}

func (h *SpreadHandler) HandleCommand(evt *socketmode.Event, client *socketmode.Client) error {
	data := evt.Data.(slack.SlashCommand)
	args := strings.Fields(data.Text)

	if len(args) < 7 || len(args) > 9 {
		_, _, err := client.PostMessage(data.ChannelID,
			slack.MsgOptionText("Invalid number of arguments. Usage: /spread <put|call> <principal> <price> <sigma> <short> <long> <credit> [lots] [trades]", false))
		return err
	}

	spreadType := models.SpreadTypeBullPut
	if strings.EqualFold(args[0], "call") {
		spreadType = models.SpreadTypeBearCall
	}

	params := models.TradeParameters{Lots: 1, NumTrades: defaultNumTrades}
	params.Principal, _ = strconv.ParseFloat(args[1], 64)
	params.StockPrice, _ = strconv.ParseFloat(args[2], 64)
	params.Sigma, _ = strconv.ParseFloat(args[3], 64)
	params.ShortStrike, _ = strconv.ParseFloat(args[4], 64)
	params.LongStrike, _ = strconv.ParseFloat(args[5], 64)
	params.Credit, _ = strconv.ParseFloat(args[6], 64)
	if len(args) > 7 {
		params.Lots, _ = strconv.Atoi(args[7])
	}
	if len(args) > 8 {
		params.NumTrades, _ = strconv.Atoi(args[8])
	}

	spread, err := models.NewSpread(params, spreadType)
	if err != nil {
		_, _, postErr := client.PostMessage(data.ChannelID,
			slack.MsgOptionText(fmt.Sprintf("Cannot evaluate spread: %s", err), false))
		return postErr
	}

	// Send initial message
	_, ts, err := client.PostMessage(data.ChannelID,
		slack.MsgOptionText(fmt.Sprintf("Simulating %d %s trades...", params.NumTrades, spreadType), false))
	if err != nil {
		return err
	}

	go runSpreadWithProgress(client, data.ChannelID, ts, spread)

	return nil
}

func runSpreadWithProgress(client *socketmode.Client, channelID, timestamp string, spread models.Spread) {
	progressChan := make(chan int, 4)
	resultChan := make(chan string, 1)

	go func() {
		resultChan <- evaluateSpread(spread, progressChan)
	}()

	for {
		select {
		case progress := <-progressChan:
			client.PostMessage(channelID,
				slack.MsgOptionText(fmt.Sprintf("Simulation %d%% complete...", progress), false),
				slack.MsgOptionTS(timestamp))
		case result := <-resultChan:
			client.PostMessage(channelID,
				slack.MsgOptionText(result, false),
				slack.MsgOptionTS(timestamp))
			return
		}
	}
}

func evaluateSpread(spread models.Spread, progressChan chan<- int) string {
	var completed int64
	var reported int64
	total := int64(spread.Params.NumTrades)

	sim := probability.Simulator{Seed: uint64(time.Now().UnixNano())}
	result, err := sim.Run(context.Background(), spread, func(n int) {
		done := atomic.AddInt64(&completed, int64(n))
		quarter := done * 4 / total
		if quarter >= 4 {
			return
		}
		for {
			last := atomic.LoadInt64(&reported)
			if quarter <= last {
				return
			}
			if atomic.CompareAndSwapInt64(&reported, last, quarter) {
				progressChan <- int(quarter * 25)
				return
			}
		}
	})
	if err != nil {
		return fmt.Sprintf("Simulation failed: %s", err)
	}

	recommendation := probability.Recommend(spread, result)

	return fmt.Sprintf(
		"*%s* — breakeven %.2f\n"+
			"Probability of Profit: %.3f%%\n"+
			"Max Loss: $%.2f (allocation %.2f%%)\n"+
			"Kelly Allocation: %.2f%% (odds %.4f)\n"+
			"Expected Value: $%.2f per trade\n"+
			"Simulated principal after %d trades: $%.2f (from $%.2f)\n"+
			"Recommendation: *%s*",
		spread.SpreadType, spread.Breakeven,
		spread.POP*100,
		spread.MaxLoss, spread.Allocation()*100,
		spread.Kelly*100, spread.Odds,
		spread.EV,
		spread.Params.NumTrades, result.FinalPrincipal, result.InitialPrincipal,
		recommendation,
	)
}
