// Command batch-cli trades against a running settlement engine.
//
// The buy and sell commands run the full commit-reveal choreography: they
// generate a fresh secret, hash the order parameters, post the bonded
// commitment for the next available batch, wait for the reveal window and
// reveal. The secret never leaves the process before the reveal window
// opens, so the order stays hidden while commits are being collected.
//
// # Usage
//
//	go run ./cmd/batch-cli buy --server=http://localhost:8080 --amount-in=100 --min-out=0.02
//	go run ./cmd/batch-cli sell --server=http://localhost:8080 --amount-in=2 --min-out=3800 --priority-bid=0.5
//	go run ./cmd/batch-cli phase --server=http://localhost:8080
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairbatch/fairbatch/client"
	"github.com/fairbatch/fairbatch/cmd/common"
	"github.com/fairbatch/fairbatch/protocol"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "buy":
		runTrade(protocol.Buy, os.Args[2:])
	case "sell":
		runTrade(protocol.Sell, os.Args[2:])
	case "phase":
		runPhase(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: batch-cli <buy|sell|phase> [flags]")
	fmt.Println("Run 'batch-cli <command> -h' for command flags")
}

func runTrade(direction protocol.Direction, args []string) {
	fs := flag.NewFlagSet(string(direction), flag.ExitOnError)
	var (
		serverURL   = fs.String("server", "http://localhost:8080", "Engine server URL")
		base        = fs.String("base", "ETH", "Base asset symbol")
		quote       = fs.String("quote", "USDC", "Quote asset symbol")
		amountIn    = fs.String("amount-in", "", "Amount of the input asset to trade")
		minOut      = fs.String("min-out", "0", "Minimum acceptable output amount (0 = no limit)")
		bond        = fs.String("bond", "1", "Commitment bond (quote asset)")
		priorityBid = fs.String("priority-bid", "0", "Priority bid, deducted from the bond")
		keyHex      = fs.String("signing-key", "", "Ed25519 signing key (hex, generates if empty)")
	)
	fs.Parse(args)

	if *amountIn == "" {
		fmt.Println("Error: --amount-in is required")
		os.Exit(1)
	}

	key, err := common.LoadOrGenerateSigningKey(*keyHex)
	if err != nil {
		fmt.Printf("Signing key error: %v\n", err)
		os.Exit(1)
	}

	params := protocol.OrderParams{
		Direction: direction,
		TokenIn:   *quote,
		TokenOut:  *base,
	}
	if direction == protocol.Sell {
		params.TokenIn, params.TokenOut = *base, *quote
	}
	if params.AmountIn, err = decimal.NewFromString(*amountIn); err != nil {
		fmt.Printf("Invalid --amount-in: %v\n", err)
		os.Exit(1)
	}
	if params.MinAmountOut, err = decimal.NewFromString(*minOut); err != nil {
		fmt.Printf("Invalid --min-out: %v\n", err)
		os.Exit(1)
	}
	bondAmount, err := decimal.NewFromString(*bond)
	if err != nil {
		fmt.Printf("Invalid --bond: %v\n", err)
		os.Exit(1)
	}
	bid, err := decimal.NewFromString(*priorityBid)
	if err != nil {
		fmt.Printf("Invalid --priority-bid: %v\n", err)
		os.Exit(1)
	}

	c := client.New(*serverURL, key)
	pubKey, _ := c.PublicKey()
	fmt.Printf("Trading as %s\n", pubKey.String())

	result, err := c.Trade(context.Background(), client.TradeRequest{
		Params:      params,
		BondAmount:  bondAmount,
		BondAsset:   *quote,
		PriorityBid: bid,
	})
	if err != nil {
		fmt.Printf("Trade error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Committed %s to batch %d (commitment %s)\n",
		direction, result.Commitment.Batch, result.Commitment.ID)
	fmt.Printf("Revealed order %s: %s %s %s for min %s %s\n",
		result.Order.CommitmentID, direction, params.AmountIn, params.TokenIn,
		params.MinAmountOut, params.TokenOut)
}

func runPhase(args []string) {
	fs := flag.NewFlagSet("phase", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "Engine server URL")
	fs.Parse(args)

	info, err := client.New(*serverURL, nil).Phase(context.Background())
	if err != nil {
		fmt.Printf("Phase query error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Batch %d: %s (as of %s)\n", info.Batch, info.Phase, info.Now.Format(time.RFC3339))
}
