package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/suchana/internal/dbus"
)

var infoOpts struct {
	output string
}

// serverReport is what info prints.
type serverReport struct {
	dbus.ServerInfo `yaml:",inline"`
	Capabilities    []string `json:"capabilities" yaml:"capabilities"`
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show notification server information and capabilities",
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().StringVarP(&infoOpts.output, "output", "o", "text",
		"Output format (text, json, yaml)")
}

func runInfo(cmd *cobra.Command, args []string) error {
	client, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), globalOpts.timeout)
	defer cancel()

	info, err := client.GetServerInformation(ctx)
	if err != nil {
		return err
	}
	caps, err := client.GetCapabilities(ctx)
	if err != nil {
		return err
	}

	return writeReport(os.Stdout, serverReport{ServerInfo: info, Capabilities: caps}, infoOpts.output)
}

func writeReport(w io.Writer, report serverReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		data, err := yaml.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to marshal yaml: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "text", "":
		_, err := io.WriteString(w, renderReport(report))
		return err
	default:
		return fmt.Errorf("unknown output format %q (expected text, json or yaml)", format)
	}
}

func renderReport(report serverReport) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	var b strings.Builder
	b.WriteString(headerStyle.Render(report.Name) + "\n")
	b.WriteString(labelStyle.Render("Vendor: ") + report.Vendor + "\n")
	b.WriteString(labelStyle.Render("Version: ") + report.Version + "\n")
	b.WriteString(labelStyle.Render("Spec version: ") + report.SpecVersion + "\n")
	b.WriteString(labelStyle.Render("Capabilities: ") + strings.Join(report.Capabilities, ", ") + "\n")
	return b.String()
}
