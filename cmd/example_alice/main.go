// Example strategy: momentum. Buys AAPL whenever the tick price drops below
// a fixed threshold. Market data arrives as JSON lines on stdin:
// {"symbol": "AAPL", "price": 144.5}
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

type marketData struct {
	Symbol string      `json:"symbol"`
	Price  json.Number `json:"price"`
}

var buyBelow = decimal.RequireFromString("145.0")

func main() {
	appLogger := logger.NewStdLogger(logger.LevelInfo)

	// Server URL and user identity come from the container environment
	// (DESK_SERVER_URL, USER_ID) set by the strategy manager.
	client, err := deskclient.New(deskclient.Config{Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize desk client: %v", err)
	}

	fmt.Println("Alice's momentum strategy started")

	ctx := context.Background()
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

		fmt.Printf("Received: %s @ $%s\n", tick.Symbol, price)

		if tick.Symbol != "AAPL" || !price.LessThan(buyBelow) {
			continue
		}

		fmt.Printf("Price $%s looks good, placing buy order...\n", price)
		_, err = client.PlaceOrder(ctx, ports.OrderParams{
			Symbol:      "AAPL",
			Qty:         "5",
			Side:        domain.Buy,
			OrderType:   domain.Market,
			TimeInForce: domain.Day,
		})
		if err != nil {
			// Catch broadly and keep consuming the input loop.
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		appLogger.Error(ctx, err, "Market data stream failed")
	}
}
