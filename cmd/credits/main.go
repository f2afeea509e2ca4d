package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"shortgen/internal/credits"
	"shortgen/internal/infra"
)

func main() {
	var (
		userFlag   string
		grantFlag  int
		reasonFlag string
		showFlag   bool
		limitFlag  int
	)

	flag.StringVar(&userFlag, "user", "", "user ID (UUID)")
	flag.IntVar(&grantFlag, "grant", 0, "credits to add to the user's balance")
	flag.StringVar(&reasonFlag, "reason", "manual grant", "reason recorded with the grant")
	flag.BoolVar(&showFlag, "show", false, "print balance and recent transactions")
	flag.IntVar(&limitFlag, "limit", 10, "number of transactions to print with -show")
	flag.Parse()

	infra.LoadDotEnv()

	userID := strings.TrimSpace(userFlag)
	if userID == "" {
		exitWithError(errors.New("-user is required"))
	}
	if _, err := uuid.Parse(userID); err != nil {
		exitWithError(fmt.Errorf("-user must be a UUID: %w", err))
	}
	if grantFlag < 0 {
		exitWithError(errors.New("-grant must be positive"))
	}
	if grantFlag == 0 && !showFlag {
		exitWithError(errors.New("nothing to do: pass -grant N or -show"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "credits").Str("user_id", userID).Logger()
	ledger := credits.NewPGLedger(infra.NewSQLRunner(pool, logger))

	if grantFlag > 0 {
		balance, err := ledger.Grant(ctx, userID, grantFlag, strings.TrimSpace(reasonFlag))
		if err != nil {
			exitWithError(fmt.Errorf("failed to grant credits: %w", err))
		}
		fmt.Printf("Granted %d credits to %s, balance=%d\n", grantFlag, userID, balance)
	}

	if showFlag {
		balance, err := ledger.Balance(ctx, userID)
		if err != nil {
			exitWithError(fmt.Errorf("failed to load balance: %w", err))
		}
		entries, err := ledger.Entries(ctx, userID, limitFlag)
		if err != nil {
			exitWithError(fmt.Errorf("failed to load transactions: %w", err))
		}
		fmt.Printf("balance=%d\n", balance)
		for _, e := range entries {
			fmt.Printf("%s %-7s %-14s %+d %s\n", e.CreatedAt.Format(time.RFC3339), e.Kind, e.Feature, e.Amount, e.Reason)
		}
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
