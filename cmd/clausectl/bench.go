package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/clauseguard/internal/assess"
	"github.com/opensource-finance/clauseguard/internal/decision"
	"github.com/opensource-finance/clauseguard/internal/domain"
	"github.com/spf13/cobra"
)

// labelledContract is one row of a benchmark corpus.
type labelledContract struct {
	Path    string
	Request assess.Request
	Risky   bool
}

// benchStats tracks benchmark results.
type benchStats struct {
	TruePositives  atomic.Int64 // risky contract alerted
	FalsePositives atomic.Int64
	TrueNegatives  atomic.Int64
	FalseNegatives atomic.Int64 // risky contract missed

	Processed atomic.Int64
	Errors    atomic.Int64
	LatencyMs atomic.Int64
}

func (s *benchStats) record(predicted, actual bool) {
	switch {
	case predicted && actual:
		s.TruePositives.Add(1)
	case predicted && !actual:
		s.FalsePositives.Add(1)
	case !predicted && !actual:
		s.TrueNegatives.Add(1)
	default:
		s.FalseNegatives.Add(1)
	}
}

func (s *benchStats) precision() float64 {
	tp, fp := s.TruePositives.Load(), s.FalsePositives.Load()
	if tp+fp == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fp)
}

func (s *benchStats) recall() float64 {
	tp, fn := s.TruePositives.Load(), s.FalseNegatives.Load()
	if tp+fn == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fn)
}

func (s *benchStats) f1() float64 {
	p, r := s.precision(), s.recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

func newBenchCmd(opts *rootOptions) *cobra.Command {
	var (
		csvPath string
		workers int
		limit   int
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure alert precision and recall against a labelled contract corpus",
		Long: `Reads a CSV corpus with the header
  file,contract_type,industry,size,entity_type,value,risky
where file is relative to the CSV and risky is 1 or 0. Each contract is
assessed and the alert decision is compared with the label.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			corpus, err := readCorpus(csvPath, limit)
			if err != nil {
				return err
			}
			eng, err := newEngine(opts)
			if err != nil {
				return err
			}
			if remote, ok := eng.(*remoteEngine); ok {
				if err := remote.health(cmd.Context()); err != nil {
					return fmt.Errorf("server not reachable at %s: %w", opts.Server, err)
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Corpus:   %s (%d contracts)\n", csvPath, len(corpus))
			fmt.Fprintf(out, "Workers:  %d\n\n", workers)

			start := time.Now()
			stats := runBench(cmd.Context(), eng, corpus, workers, func(c labelledContract, resp *alertResult, err error) {
				if !verbose {
					return
				}
				if err != nil {
					fmt.Fprintf(out, "ERROR %s: %v\n", c.Path, err)
					return
				}
				mark := "ok"
				if resp.Alert != c.Risky {
					mark = "MISS"
				}
				fmt.Fprintf(out, "%-4s %-40s risky=%-5v alert=%-5v score=%.1f level=%s\n",
					mark, c.Path, c.Risky, resp.Alert, resp.Score, resp.Level)
			})
			printBench(out, stats, time.Since(start))
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&csvPath, "csv", "", "labelled corpus CSV [REQUIRED]")
	fs.IntVar(&workers, "workers", 4, "concurrent workers")
	fs.IntVar(&limit, "limit", 0, "maximum contracts to assess (0 = all)")
	fs.BoolVar(&verbose, "verbose", false, "print each contract result")
	cmd.MarkFlagRequired("csv")

	return cmd
}

func readCorpus(path string, limit int) ([]labelledContract, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"file", "contract_type", "risky"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("corpus is missing column %q", required)
		}
	}
	field := func(rec []string, name, fallback string) string {
		if i, ok := col[name]; ok && i < len(rec) && rec[i] != "" {
			return strings.TrimSpace(rec[i])
		}
		return fallback
	}

	dir := filepath.Dir(path)
	var out []labelledContract
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rel := field(rec, "file", "")
		text, err := os.ReadFile(filepath.Join(dir, rel))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		req := assess.Request{
			Text: string(text),
			Company: domain.Company{
				Industry:   domain.Industry(field(rec, "industry", string(domain.IndustryOther))),
				Size:       domain.CompanySize(field(rec, "size", string(domain.SizeSmall))),
				EntityType: domain.LegalEntityType(field(rec, "entity_type", string(domain.EntityPrivateLimited))),
			},
			ContractType: domain.ContractType(field(rec, "contract_type", "")),
		}
		if v := field(rec, "value", ""); v != "" {
			amount, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: value: %w", line, err)
			}
			req.Value = &domain.Money{Amount: amount, Currency: "GBP"}
		}
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		out = append(out, labelledContract{
			Path:    rel,
			Request: req,
			Risky:   field(rec, "risky", "0") == "1",
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// alertResult is the per-contract outcome of a benchmark run.
type alertResult struct {
	Alert bool
	Score float64
	Level domain.Severity
}

func runBench(ctx context.Context, eng engine, corpus []labelledContract, workers int, report func(labelledContract, *alertResult, error)) *benchStats {
	stats := &benchStats{}
	processor := decision.NewProcessor()
	var reportMu sync.Mutex

	work := make(chan labelledContract)
	var wg sync.WaitGroup
	for n := max(workers, 1); n > 0; n-- {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range work {
				start := time.Now()
				resp, err := eng.Assess(ctx, c.Request)
				if err == nil && resp.Risk == nil {
					err = errors.New("response has no risk section")
				}
				stats.LatencyMs.Add(time.Since(start).Milliseconds())
				stats.Processed.Add(1)

				var res *alertResult
				if err == nil {
					risk := *resp.Risk
					risk.Compliance = resp.Compliance
					rec := &domain.AssessmentRecord{Assessment: &risk}
					res = &alertResult{
						Alert: processor.ShouldAlert(rec),
						Score: risk.OverallScore,
						Level: risk.RiskLevel,
					}
					stats.record(res.Alert, c.Risky)
				} else {
					stats.Errors.Add(1)
				}

				reportMu.Lock()
				report(c, res, err)
				reportMu.Unlock()
			}
		}()
	}

	for _, c := range corpus {
		if ctx.Err() != nil {
			break
		}
		work <- c
	}
	close(work)
	wg.Wait()

	return stats
}

func printBench(w io.Writer, s *benchStats, elapsed time.Duration) {
	fmt.Fprintln(w, "\nRESULTS")
	fmt.Fprintf(w, "  Processed:  %d\n", s.Processed.Load())
	fmt.Fprintf(w, "  Errors:     %d\n", s.Errors.Load())

	fmt.Fprintln(w, "\nCONFUSION MATRIX")
	fmt.Fprintln(w, "                    alert    no alert")
	fmt.Fprintf(w, "  risky        %8d    %8d   (TP, FN)\n", s.TruePositives.Load(), s.FalseNegatives.Load())
	fmt.Fprintf(w, "  acceptable   %8d    %8d   (FP, TN)\n", s.FalsePositives.Load(), s.TrueNegatives.Load())

	fmt.Fprintln(w, "\nDETECTION")
	fmt.Fprintf(w, "  Precision:  %.4f\n", s.precision())
	fmt.Fprintf(w, "  Recall:     %.4f\n", s.recall())
	fmt.Fprintf(w, "  F1-Score:   %.4f\n", s.f1())

	fmt.Fprintln(w, "\nPERFORMANCE")
	fmt.Fprintf(w, "  Duration:   %v\n", elapsed.Round(time.Millisecond))
	if n := s.Processed.Load(); n > 0 {
		fmt.Fprintf(w, "  Avg latency: %.2f ms\n", float64(s.LatencyMs.Load())/float64(n))
		fmt.Fprintf(w, "  Throughput:  %.2f contracts/sec\n", float64(n)/elapsed.Seconds())
	}
	fmt.Fprintln(w)
}
