package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opensource-finance/clauseguard/internal/assess"
	"github.com/opensource-finance/clauseguard/internal/domain"
	"github.com/spf13/cobra"
)

// contractFlags are the flags describing the contract under review and the
// company reviewing it.
type contractFlags struct {
	file     string
	industry string
	size     string
	entity   string
	kind     string
	value    float64
	currency string
	company  string
	vat      bool
}

func (f *contractFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.file, "file", "f", "", "contract text file, - for stdin [REQUIRED]")
	fs.StringVar(&f.industry, "industry", string(domain.IndustryOther), "company industry")
	fs.StringVar(&f.size, "size", string(domain.SizeSmall), "company size (micro, small, medium, large)")
	fs.StringVar(&f.entity, "entity", string(domain.EntityPrivateLimited), "legal entity type")
	fs.StringVar(&f.kind, "type", string(domain.ContractServiceAgreement), "contract type")
	fs.Float64Var(&f.value, "value", 0, "contract value (0 = unknown)")
	fs.StringVar(&f.currency, "currency", "GBP", "contract value currency")
	fs.StringVar(&f.company, "company", "", "company name")
	fs.BoolVar(&f.vat, "vat", false, "company is VAT registered")
	cmd.MarkFlagRequired("file")
}

func (f *contractFlags) request(stdin io.Reader) (assess.Request, error) {
	var (
		text []byte
		err  error
	)
	if f.file == "-" {
		text, err = io.ReadAll(stdin)
	} else {
		text, err = os.ReadFile(f.file)
	}
	if err != nil {
		return assess.Request{}, fmt.Errorf("failed to read contract: %w", err)
	}

	req := assess.Request{
		Text: string(text),
		Company: domain.Company{
			Name:          f.company,
			Industry:      domain.Industry(f.industry),
			Size:          domain.CompanySize(f.size),
			EntityType:    domain.LegalEntityType(f.entity),
			VATRegistered: f.vat,
		},
		ContractType: domain.ContractType(f.kind),
	}
	if f.value > 0 {
		req.Value = &domain.Money{Amount: f.value, Currency: strings.ToUpper(f.currency)}
	}
	return req, req.Validate()
}

func newAssessCmd(opts *rootOptions) *cobra.Command {
	var flags contractFlags

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Check compliance and score the risk of a contract",
		Long:  "Run the full two-stage assessment: compliance validation followed by weighted risk analysis.",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(cmd.InOrStdin())
			if err != nil {
				return err
			}
			eng, err := newEngine(opts)
			if err != nil {
				return err
			}

			resp, err := eng.Assess(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("assessment failed: %w", err)
			}

			if opts.Output == "json" {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			printRisk(cmd.OutOrStdout(), resp.Risk)
			printCompliance(cmd.OutOrStdout(), resp.Compliance)
			if resp.Risk != nil && resp.Risk.RiskLevel.Rank() >= domain.SeverityHigh.Rank() {
				fmt.Fprintf(cmd.ErrOrStderr(), "WARNING: contract risk is %s\n", resp.Risk.RiskLevel.Title())
			}
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var flags contractFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a contract against the applicable compliance rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(cmd.InOrStdin())
			if err != nil {
				return err
			}
			eng, err := newEngine(opts)
			if err != nil {
				return err
			}

			result, err := eng.Validate(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			if opts.Output == "json" {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			printCompliance(cmd.OutOrStdout(), result)
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
