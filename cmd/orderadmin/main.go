// Command orderadmin is a maintenance CLI over the configured order backend:
//
//	orderadmin stats               print aggregate statistics
//	orderadmin summary <order-id>  print one order's summary block
//	orderadmin clear --yes         delete every order
//
// The backend is selected by ORDER_BACKEND (embedded|distributed) plus
// ORDER_DB_PATH or ORDER_TABLE/AWS_REGION. Set ORDER_EVENTS_BROKERS to
// publish change events for mutating commands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/ortizcarlos/agentic-customer-support/internal/events"
	"github.com/ortizcarlos/agentic-customer-support/internal/infrastructure/store"
	"github.com/ortizcarlos/agentic-customer-support/internal/stats"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
	}

	ctx := context.Background()
	st, err := store.FromEnv(ctx)
	if err != nil {
		log.Fatalf("[OrderAdmin] backend: %v", err)
	}
	st = events.FromEnv(st)
	defer st.Close()

	switch os.Args[1] {
	case "stats":
		runStats(ctx, st)
	case "summary":
		if len(os.Args) < 3 {
			usage()
		}
		runSummary(ctx, st, os.Args[2])
	case "clear":
		runClear(ctx, st, os.Args[2:])
	default:
		usage()
	}
}

func runStats(ctx context.Context, st store.OrderStore) {
	result, err := stats.NewAggregator(st).Collect(ctx)
	if err != nil {
		log.Fatalf("[OrderAdmin] statistics: %v", err)
	}

	fmt.Printf("Total orders:     %d\n", result.TotalOrders)
	fmt.Printf("Total revenue:    $%s\n", result.TotalRevenue.StringFixed(2))
	fmt.Printf("Unique customers: %d\n", result.UniqueCustomers)
	fmt.Println("Status breakdown:")
	for status, count := range result.StatusBreakdown {
		fmt.Printf("  %-16s %d\n", status, count)
	}
}

func runSummary(ctx context.Context, st store.OrderStore, orderID string) {
	summary, err := st.FormatOrderSummary(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		log.Fatalf("[OrderAdmin] order %q not found", orderID)
	}
	if err != nil {
		log.Fatalf("[OrderAdmin] summary: %v", err)
	}
	fmt.Println(summary)
}

func runClear(ctx context.Context, st store.OrderStore, args []string) {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	yes := fs.Bool("yes", false, "confirm deleting every order")
	_ = fs.Parse(args)

	// clear_all_orders is unguarded at the storage layer; the gate lives here.
	if !*yes {
		log.Fatal("[OrderAdmin] refusing to clear without --yes")
	}

	count, err := st.ClearAllOrders(ctx)
	if err != nil {
		log.Fatalf("[OrderAdmin] clear: %v", err)
	}
	fmt.Printf("Deleted %d orders\n", count)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: orderadmin <stats | summary <order-id> | clear --yes>")
	os.Exit(2)
}
