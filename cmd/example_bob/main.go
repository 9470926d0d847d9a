// Example strategy: mean reversion. Tracks a rolling window of prices per
// symbol and places a limit buy when the price dips 2% below the window
// average. Market data arrives as JSON lines on stdin.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"

	"tradingdesk/internal/adapters/deskclient"
	"tradingdesk/internal/adapters/logger"
	"tradingdesk/internal/domain"
	"tradingdesk/internal/ports"
)

const (
	windowSize = 10
	minWindow  = 5
)

type marketData struct {
	Symbol string      `json:"symbol"`
	Price  json.Number `json:"price"`
}

var (
	dipRatio    = decimal.RequireFromString("0.98")
	limitOffset = decimal.RequireFromString("0.10")
)

func main() {
	appLogger := logger.NewStdLogger(logger.LevelInfo)

	client, err := deskclient.New(deskclient.Config{Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize desk client: %v", err)
	}

	fmt.Println("Bob's mean reversion strategy started")

	ctx := context.Background()
	prices := map[string][]decimal.Decimal{} // rolling window per symbol

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		var tick marketData
		if err := json.Unmarshal(scanner.Bytes(), &tick); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to parse market data: %v\n", err)
			continue
		}
		if tick.Symbol == "" || tick.Price == "" {
			continue
		}
		price, err := decimal.NewFromString(tick.Price.String())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to parse price %q: %v\n", tick.Price, err)
			continue
		}

		window := append(prices[tick.Symbol], price)
		if len(window) > windowSize {
			window = window[1:]
		}
		prices[tick.Symbol] = window

		fmt.Printf("Received: %s @ $%s\n", tick.Symbol, price)

		if len(window) < minWindow {
			continue
		}
		avg := decimal.Avg(window[0], window[1:]...)
		if !price.LessThan(avg.Mul(dipRatio)) {
			continue
		}

		fmt.Printf("Price $%s is below average $%s, buying...\n", price, avg.Round(2))
		_, err = client.PlaceOrder(ctx, ports.OrderParams{
			Symbol:      tick.Symbol,
			Qty:         "3",
			Side:        domain.Buy,
			OrderType:   domain.Limit,
			TimeInForce: domain.Day,
			LimitPrice:  price.Add(limitOffset).String(),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		appLogger.Error(ctx, err, "Market data stream failed")
	}
}
