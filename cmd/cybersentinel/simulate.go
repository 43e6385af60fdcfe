package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cybersentinel/internal/bootstrap"
	"cybersentinel/internal/view"
	"cybersentinel/internal/workflow"
	"cybersentinel/pkg/models"
)

type simulateOptions struct {
	steps    int
	seed     uint64
	actions  string
	output   string
	final    string
	dataset  string
	realtime bool
}

// stepRecord is one line of simulate output.
type stepRecord struct {
	Step    int             `json:"step"`
	RunID   string          `json:"run_id"`
	Action  workflow.Action `json:"action"`
	Message string          `json:"message"`
	KPIs    models.KPIs     `json:"kpis"`
	Error   string          `json:"error,omitempty"`
}

func newSimulateCmd() *cobra.Command {
	var opts simulateOptions
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run workflow steps offline and write the results as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.steps, "steps", 9, "number of steps to run")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "random seed (0 uses workflow.seed or the clock)")
	cmd.Flags().StringVar(&opts.actions, "actions", "fetch-intel,parse-logs,run-correlation", "comma-separated actions, cycled")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "output/simulation.jsonl", "step results JSONL path")
	cmd.Flags().StringVar(&opts.final, "final", "", "optional path for the final dataset JSON")
	cmd.Flags().StringVar(&opts.dataset, "dataset", "", "start from this dataset file instead of the bootstrap chain")
	cmd.Flags().BoolVar(&opts.realtime, "realtime", false, "keep the simulated step delays")
	return cmd
}

func runSimulate(cmd *cobra.Command, opts simulateOptions) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	c := cfg.CyberSentinel

	actions, err := parseActions(opts.actions)
	if err != nil {
		return err
	}

	engine, err := newEngine(c, opts.seed)
	if err != nil {
		return err
	}
	d := workflow.Delays{}
	if opts.realtime {
		d = delays(c)
	}
	sink := view.NewMemorySink()
	orch := workflow.New(engine, nil, view.NewRenderer(sink), workflow.WithDelays(d))

	ctx := cmd.Context()
	if opts.dataset != "" {
		raw, err := readDataset(opts.dataset)
		if err != nil {
			return err
		}
		start, err := bootstrap.Decode(raw)
		if err != nil {
			return err
		}
		if _, err := orch.Load(ctx, start); err != nil {
			return err
		}
	} else {
		chain, closeChain, err := sourceChain(c.Bootstrap)
		if err != nil {
			return err
		}
		defer closeChain()
		start, _, err := chain.Resolve(ctx)
		if err != nil {
			return err
		}
		if _, err := orch.Load(ctx, start); err != nil {
			return err
		}
	}

	records := make([]stepRecord, 0, opts.steps)
	for i := 0; i < opts.steps; i++ {
		action := actions[i%len(actions)]
		res, err := orch.Trigger(ctx, action)
		rec := stepRecord{Step: i + 1, RunID: res.RunID, Action: action, Message: res.Message}
		if err != nil {
			rec.Error = err.Error()
			records = append(records, rec)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		rec.KPIs = res.Dataset.KPIs
		records = append(records, rec)
	}

	if err := writeJSONLines(opts.output, records); err != nil {
		return err
	}
	if opts.final != "" {
		if err := writeJSON(opts.final, orch.Current()); err != nil {
			return err
		}
	}

	k := orch.Current().KPIs
	fmt.Fprintf(cmd.OutOrStdout(), "simulated steps=%d intel=%d ssh=%d apache=%d alerts=%d charts=%d output=%s\n",
		len(records), k.IntelCount, k.SSHEvents, k.ApacheEvents, k.Alerts, sink.Created, opts.output)
	return ignoreCanceled(ctx.Err())
}

func parseActions(raw string) ([]workflow.Action, error) {
	var out []workflow.Action
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		a, err := workflow.ParseAction(part)
		if err != nil {
			return nil, err
		}
		if a == workflow.Bootstrap {
			return nil, fmt.Errorf("%w: bootstrap cannot be simulated", workflow.ErrUnknownAction)
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no actions given")
	}
	return out, nil
}

func writeJSONLines[T any](path string, rows []T) error {
	f, err := createOutput(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, item := range rows {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	f, err := createOutput(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

func createOutput(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return f, nil
}
