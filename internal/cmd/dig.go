package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/namelens/reachlens/internal/core/dnsquery"
	"github.com/namelens/reachlens/internal/observability"
	"github.com/namelens/reachlens/internal/output"
)

var digCmd = &cobra.Command{
	Use:   "dig <name> [type]",
	Short: "Query DNS the way the availability check does",
	Long: `Run one DNS query through the configured servers and protocol.
The record type defaults to A. PTR queries accept a plain IP address.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDig,
}

func init() {
	rootCmd.AddCommand(digCmd)

	digCmd.Flags().StringSlice("server", nil, "DNS servers (default: dns.servers or the system resolvers)")
	digCmd.Flags().String("protocol", "", "Transport: UDP, TCP, HTTPS, TLS (default: dns.protocol)")
	digCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table, json")
}

func runDig(cmd *cobra.Command, args []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	if format != output.FormatJSON && format != output.FormatTable {
		return fmt.Errorf("unsupported output format: %s", format)
	}

	name := strings.TrimSpace(args[0])
	recordType := "A"
	if len(args) == 2 {
		recordType = strings.ToUpper(strings.TrimSpace(args[1]))
	}
	if recordType == "PTR" {
		if reverse, err := dnsquery.ReverseName(name); err == nil {
			name = reverse
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dnsCfg, err := cfg.DNSQueryConfig()
	if err != nil {
		return err
	}
	servers, err := cmd.Flags().GetStringSlice("server")
	if err != nil {
		return err
	}
	if len(servers) > 0 {
		dnsCfg.Servers = servers
	}
	protocol, err := cmd.Flags().GetString("protocol")
	if err != nil {
		return err
	}
	if strings.TrimSpace(protocol) != "" {
		if dnsCfg.Protocol, err = dnsquery.ParseProtocol(protocol); err != nil {
			return err
		}
	}

	tool, err := dnsquery.New(dnsCfg, dnsquery.WithLogger(observability.Logger()))
	if err != nil {
		return err
	}
	result, err := tool.Query(cmd.Context(), name, recordType)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Name", "Type", "Record"})
	for _, record := range result.Records {
		t.AppendRow(table.Row{result.Name, result.RecordType, record})
	}
	if !result.Found() {
		t.AppendRow(table.Row{result.Name, result.RecordType, "(no answer)"})
	}
	t.AppendFooter(table.Row{string(result.Protocol), "", strings.Join(result.Tried, ", ")})
	return writeRendered(w, t.Render())
}
