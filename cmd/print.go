package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-booth/internal/cloudprint"
	"github.com/kozaktomas/photo-booth/internal/config"
	"github.com/kozaktomas/photo-booth/internal/logging"
	"github.com/kozaktomas/photo-booth/internal/printhelper"
)

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Inspect printers and print jobs",
}

var printStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the normalized status of a cloud print job",
	Long: `Query the cloud print provider for a job and its printer and show the
normalized status together with the printer's paper capabilities.

Example:
  photo-booth print status --printer 71234 --job 9001
  photo-booth print status --printer 71234 --json`,
	RunE: runPrintStatus,
}

var printPrintersCmd = &cobra.Command{
	Use:   "printers",
	Short: "List printers installed on the print helper's machine",
	RunE:  runPrintPrinters,
}

func init() {
	rootCmd.AddCommand(printCmd)
	printCmd.AddCommand(printStatusCmd)
	printCmd.AddCommand(printPrintersCmd)

	printStatusCmd.Flags().Int("printer", 0, "Cloud printer id (defaults to CLOUD_PRINT_PRINTER_ID)")
	printStatusCmd.Flags().String("job", "", "Print job id")
	printStatusCmd.Flags().String("api-key", "", "Cloud print API key (defaults to CLOUD_PRINT_API_KEY)")
	printStatusCmd.Flags().Bool("json", false, "Output as JSON")
}

func runPrintStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := logging.New(cfg.App.Env, cfg.App.LogLevel)

	apiKey := mustGetString(cmd, "api-key")
	if apiKey == "" {
		apiKey = cfg.Printing.CloudAPIKey
	}
	if apiKey == "" {
		return errors.New("an API key is required: pass --api-key or set CLOUD_PRINT_API_KEY")
	}
	printerID := mustGetInt(cmd, "printer")
	if printerID == 0 {
		printerID = cfg.Printing.CloudPrinterID
	}

	client := cloudprint.New(cfg.Printing.CloudURL, cloudprint.NewNormalizer(cfg.Media, log), log)
	result := client.Status(commandContext(cmd), apiKey, printerID, mustGetString(cmd, "job"))

	out := cmd.OutOrStdout()
	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Status:\t%s\n", result.Status)
	fmt.Fprintf(w, "Message:\t%s\n", result.Message)
	if result.OriginalState != "" {
		fmt.Fprintf(w, "Provider state:\t%s\n", result.OriginalState)
	}
	if result.JobID != "" {
		fmt.Fprintf(w, "Job:\t%s\n", result.JobID)
	}
	fmt.Fprintf(w, "Printer online:\t%t\n", result.PrinterOnline)
	fmt.Fprintf(w, "Photo paper:\t%t\n", result.SupportsPhoto)
	fmt.Fprintf(w, "Letter paper:\t%t\n", result.SupportsLetter)
	return w.Flush()
}

func runPrintPrinters(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := logging.New(cfg.App.Env, cfg.App.LogLevel)
	if cfg.Printing.HelperURL == "" {
		return errors.New("PRINT_HELPER_URL environment variable is required")
	}

	helper := printhelper.New(cfg.Printing.HelperURL, cfg.Printing.HelperPrinter, log)
	printers, err := helper.Printers(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list printers: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(printers) == 0 {
		fmt.Fprintln(out, "The print helper reports no printers.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDEFAULT\tSTATUS")
	for _, p := range printers {
		def := ""
		if p.Default {
			def = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, def, p.Status)
	}
	return w.Flush()
}

// commandContext returns the command's context, falling back to Background
// when the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
