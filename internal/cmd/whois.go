package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/namelens/reachlens/internal/core/syntax"
	"github.com/namelens/reachlens/internal/core/whois"
	"github.com/namelens/reachlens/internal/observability"
	"github.com/namelens/reachlens/internal/output"
)

var whoisCmd = &cobra.Command{
	Use:   "whois <domain>",
	Short: "Query WHOIS and show the extracted expiration date",
	Long: `Query the WHOIS server responsible for a domain's extension and show the
fields the availability check relies on, followed by the raw record.`,
	Args: cobra.ExactArgs(1),
	RunE: runWhois,
}

func init() {
	rootCmd.AddCommand(whoisCmd)

	whoisCmd.Flags().String("server", "", "WHOIS server (default: from the extension table)")
	whoisCmd.Flags().Bool("no-record", false, "Do not print the raw record")
	whoisCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table, json")
}

type whoisReport struct {
	Subject    string `json:"subject"`
	Server     string `json:"server"`
	Expiration string `json:"expiration_date,omitempty"`
	Registrar  string `json:"registrar,omitempty"`
	Record     string `json:"record,omitempty"`
}

func runWhois(cmd *cobra.Command, args []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	if format != output.FormatJSON && format != output.FormatTable {
		return fmt.Errorf("unsupported output format: %s", format)
	}
	server, err := cmd.Flags().GetString("server")
	if err != nil {
		return err
	}
	noRecord, err := cmd.Flags().GetBool("no-record")
	if err != nil {
		return err
	}

	subject := syntax.ToIDNA(strings.TrimSpace(args[0]))
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, err := whoisTable(cfg)
	if err != nil {
		return err
	}

	logger := observability.Logger()
	client := whois.NewClient(table, cfg.Whois.Timeout, whois.WithClientLogger(logger))
	server = strings.TrimSpace(server)
	if server == "" {
		resolved, ok := client.ServerFor(subject)
		if !ok && cfg.Whois.IANAReferral {
			resolved, err = client.Referral(cmd.Context(), whois.Extension(subject))
			ok = err == nil && resolved != ""
		}
		if !ok {
			return fmt.Errorf("no WHOIS server known for %s", subject)
		}
		server = resolved
	}

	resp := client.Lookup(cmd.Context(), subject, server)
	if resp == nil {
		return fmt.Errorf("WHOIS query to %s failed", server)
	}

	report := whoisReport{
		Subject:    subject,
		Server:     resp.Server,
		Expiration: whois.NewExtractor(logger).Extract(resp.Body),
		Registrar:  whois.Registrar(resp.Body),
	}
	if !noRecord {
		report.Record = resp.Body
	}
	return writeWhoisReport(cmd.OutOrStdout(), format, report)
}

func writeWhoisReport(w io.Writer, format output.Format, report whoisReport) error {
	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	lines := []string{
		"WHOIS " + report.Subject,
		"",
		"server:     " + report.Server,
		"expiration: " + orDash(report.Expiration),
		"registrar:  " + orDash(report.Registrar),
	}
	if _, err := fmt.Fprint(w, ascii.DrawBox(strings.Join(lines, "\n"), 0)); err != nil {
		return err
	}
	if report.Record != "" {
		return writeRendered(w, "\n"+strings.TrimSpace(report.Record))
	}
	return nil
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
