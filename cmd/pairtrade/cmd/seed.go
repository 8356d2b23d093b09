package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/pairtrade/market"
	"github.com/rustyeddy/pairtrade/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load prices from a CSV file into the SQLite store",
	Long: `Seed reads price rows from a CSV file and inserts them into the
store. Expected columns: time,symbol,price[,bid,ask[,volume]] with time
in RFC 3339. A header row starting with "time" is skipped. Duplicate
(symbol, time) rows are ignored.

Example:
  pairtrade seed --csv prices.csv --db prices.db`,
	RunE: runSeed,
}

var (
	seedCSVPath string
	seedDBPath  string
)

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedCSVPath, "csv", "", "CSV file to load (required)")
	seedCmd.Flags().StringVar(&seedDBPath, "db", "pairtrade.db", "SQLite store path")
	seedCmd.MarkFlagRequired("csv")
}

func runSeed(cmd *cobra.Command, args []string) error {
	f, err := os.Open(seedCSVPath)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := store.NewSQLite(seedDBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var count int
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		point, err := parsePriceRow(row)
		if err != nil {
			return err
		}
		if err := st.InsertPrice(ctx, point); err != nil {
			return fmt.Errorf("insert %s@%s: %w", point.Symbol, point.Time, err)
		}
		count++
	}

	fmt.Printf("✓ Loaded %d price points into %s\n", count, seedDBPath)
	return nil
}

func parsePriceRow(row []string) (market.PricePoint, error) {
	if len(row) < 3 {
		return market.PricePoint{}, fmt.Errorf("bad row (need at least time,symbol,price): %v", row)
	}

	at, err := time.Parse(time.RFC3339, strings.TrimSpace(row[0]))
	if err != nil {
		return market.PricePoint{}, fmt.Errorf("bad time %q: %w", row[0], err)
	}

	point := market.PricePoint{
		Symbol: strings.TrimSpace(row[1]),
		Time:   at,
	}
	if point.Price, err = parseFloat(row[2]); err != nil {
		return market.PricePoint{}, err
	}

	if len(row) >= 5 {
		if point.Bid, err = parseFloat(row[3]); err != nil {
			return market.PricePoint{}, err
		}
		if point.Ask, err = parseFloat(row[4]); err != nil {
			return market.PricePoint{}, err
		}
	}
	if len(row) >= 6 {
		if point.Volume, err = parseFloat(row[5]); err != nil {
			return market.PricePoint{}, err
		}
	}
	return point, nil
}

func parseFloat(v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q: %w", v, err)
	}
	return f, nil
}
