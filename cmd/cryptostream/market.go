package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/newthinker/cryptostream/internal/core"
	"github.com/newthinker/cryptostream/internal/export"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	marketJSON   bool
	marketExport string
)

var marketCmd = &cobra.Command{
	Use:   "market [symbol...]",
	Short: "Print the current market snapshot",
	Example: `  cryptostream market
  cryptostream market BTC/USD ethereum SOL --provider coingecko
  cryptostream market --export csv`,
	RunE: runMarket,
}

func init() {
	marketCmd.Flags().BoolVar(&marketJSON, "json", false, "print JSON instead of a table")
	marketCmd.Flags().StringVar(&marketExport, "export", "", "also export the snapshot (csv or json)")
	rootCmd.AddCommand(marketCmd)
}

func runMarket(cmd *cobra.Command, args []string) error {
	a, _, log, err := setup()
	defer log.Sync()
	if err != nil {
		return err
	}

	symbols := args
	if len(symbols) == 0 {
		symbols = a.Symbols()
	}

	assets, err := a.Service().MarketSnapshot(cmd.Context(), symbols)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if marketJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(assets); err != nil {
			return err
		}
	} else if err := printAssets(out, assets); err != nil {
		return err
	}

	if marketExport == "" {
		return nil
	}
	format, err := export.ParseFormat(marketExport)
	if err != nil {
		return err
	}
	res, err := a.Exporter().Snapshot(cmd.Context(), format, assets)
	if err != nil {
		return err
	}
	log.Info("snapshot exported",
		zap.String("filename", res.Filename),
		zap.String("path", res.Path),
		zap.Int("assets", len(assets)),
	)
	return nil
}

func printAssets(out io.Writer, assets []core.Asset) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tNAME\tPRICE\tCHANGE 24H\tVOLUME 24H")
	for _, a := range assets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			a.Symbol, a.Name, formatCurrency(a.Price), formatPercentage(a.Change24h), formatLargeNumber(a.Volume24h))
	}
	return tw.Flush()
}
