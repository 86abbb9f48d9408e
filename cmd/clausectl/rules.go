package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/opensource-finance/clauseguard/internal/domain"
	"github.com/spf13/cobra"
)

func newRulesCmd(opts *rootOptions) *cobra.Command {
	var (
		industry   string
		size       string
		entity     string
		kind       string
		frameworks string
	)

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List compliance rules",
		Long:  "List the rule catalog. With filters, only rules applicable to that context are shown; --framework overrides the other filters.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := ruleFilter{
				Industry:     domain.Industry(industry),
				Size:         domain.CompanySize(size),
				EntityType:   domain.LegalEntityType(entity),
				ContractType: domain.ContractType(kind),
			}
			for _, name := range strings.Split(frameworks, ",") {
				if name = strings.TrimSpace(name); name == "" {
					continue
				}
				fw := domain.Framework(name)
				if !fw.Valid() {
					return fmt.Errorf("invalid framework: %s", name)
				}
				f.Frameworks = append(f.Frameworks, fw)
			}

			eng, err := newEngine(opts)
			if err != nil {
				return err
			}
			list, err := eng.Rules(cmd.Context(), f)
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			if opts.Output == "json" {
				return writeJSON(cmd.OutOrStdout(), list)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFRAMEWORK\tSEVERITY\tTITLE")
			for _, r := range list {
				sev := r.Severity
				if sev == "" {
					sev = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Category, sev, r.Title)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d rules\n", len(list))
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&industry, "industry", "", "filter by company industry")
	fs.StringVar(&size, "size", "", "filter by company size")
	fs.StringVar(&entity, "entity", "", "filter by legal entity type")
	fs.StringVar(&kind, "type", "", "filter by contract type")
	fs.StringVar(&frameworks, "framework", "", "filter by framework (comma-separated)")

	return cmd
}
