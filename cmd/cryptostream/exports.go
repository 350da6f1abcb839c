package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportsOutput string

var exportsCmd = &cobra.Command{
	Use:   "exports",
	Short: "Browse archived exports",
}

var exportsListCmd = &cobra.Command{
	Use:   "list [csv|json]",
	Short: "List archived exports",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, log, err := setup()
		defer log.Sync()
		if err != nil {
			return err
		}

		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		paths, err := a.Exporter().List(cmd.Context(), prefix)
		if err != nil {
			return err
		}
		return printExportList(cmd.OutOrStdout(), paths)
	},
}

var exportsGetCmd = &cobra.Command{
	Use:     "get <path>",
	Short:   "Print or save an archived export",
	Example: `  cryptostream exports get csv/crypto-dataset-2024-01-02T03-04-05.csv -o dataset.csv`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, log, err := setup()
		defer log.Sync()
		if err != nil {
			return err
		}

		res, err := a.Exporter().Open(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if exportsOutput == "" {
			_, err = cmd.OutOrStdout().Write(res.Data)
			return err
		}
		if err := os.WriteFile(exportsOutput, res.Data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", exportsOutput, err)
		}
		log.Info("export saved", zap.String("path", res.Path), zap.String("file", exportsOutput))
		return nil
	},
}

var exportsDeleteCmd = &cobra.Command{
	Use:   "delete <path>",
	Short: "Delete an archived export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, log, err := setup()
		defer log.Sync()
		if err != nil {
			return err
		}
		return a.Exporter().Delete(cmd.Context(), args[0])
	},
}

func init() {
	exportsGetCmd.Flags().StringVarP(&exportsOutput, "output", "o", "", "write to file instead of stdout")
	exportsCmd.AddCommand(exportsListCmd, exportsGetCmd, exportsDeleteCmd)
	rootCmd.AddCommand(exportsCmd)
}

func printExportList(out io.Writer, paths []string) error {
	for _, p := range paths {
		if _, err := fmt.Fprintln(out, p); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(out, "%d exports\n", len(paths))
	return err
}
