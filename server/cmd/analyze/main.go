// Command analyze computes a storelens report from two local files without
// starting the server.
//
//	analyze -orders orders.csv -inventory inventory.csv [-format text|json|pdf] [-out file] [-now RFC3339]
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/storelens/storelens/pkg/types"
	"github.com/storelens/storelens/server/internal/compute"
	"github.com/storelens/storelens/server/internal/config"
	"github.com/storelens/storelens/server/internal/ingest"
	"github.com/storelens/storelens/server/internal/report"
	"github.com/storelens/storelens/server/internal/rules"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	orders, inventory string
	format            string
	out               string
	now               time.Time
	configPath        string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.orders, "orders", "", "orders table (.csv, .tsv or .parquet)")
	fs.StringVar(&o.inventory, "inventory", "", "inventory table (.csv, .tsv or .parquet)")
	fs.StringVar(&o.format, "format", "text", "output format: text | json | pdf")
	fs.StringVar(&o.out, "out", "", "write the report here instead of stdout")
	fs.StringVar(&o.configPath, "config", "", "config file for analysis settings and rules")
	nowFlag := fs.String("now", "", "reference time for expiry (RFC3339); defaults to the current time")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.orders == "" || o.inventory == "" {
		return nil, errors.New("both -orders and -inventory are required")
	}
	switch o.format {
	case "text", "json", "pdf":
	default:
		return nil, fmt.Errorf("unknown -format %q: want text|json|pdf", o.format)
	}
	if o.format == "pdf" && o.out == "" {
		return nil, errors.New("-format pdf needs -out")
	}

	o.now = time.Now()
	if *nowFlag != "" {
		t, err := time.Parse(time.RFC3339, *nowFlag)
		if err != nil {
			return nil, fmt.Errorf("bad -now: %w", err)
		}
		o.now = t
	}
	return o, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	o, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, "analyze:", err)
		}
		return exitUsage
	}

	rep, err := analyze(o)
	if err != nil {
		fmt.Fprintf(stderr, "analyze: %s: %v\n", types.KindOf(err), err)
		return exitFailure
	}

	var buf bytes.Buffer
	switch o.format {
	case "json":
		err = rep.WriteJSON(&buf)
	case "pdf":
		var b []byte
		b, err = report.RenderPDF(rep)
		buf.Write(b)
	default:
		err = report.WriteText(&buf, rep)
	}
	if err != nil {
		fmt.Fprintln(stderr, "analyze: render:", err)
		return exitFailure
	}

	if o.out == "" {
		stdout.Write(buf.Bytes()) //nolint:errcheck
		return exitOK
	}
	if err := os.WriteFile(o.out, buf.Bytes(), 0o644); err != nil {
		fmt.Fprintln(stderr, "analyze:", err)
		return exitFailure
	}
	return exitOK
}

func analyze(o *options) (*report.Report, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Analysis.Location()
	if err != nil {
		return nil, err
	}
	reader := ingest.NewReader(ingest.Options{Location: loc, DateLayouts: cfg.Analysis.DateLayouts})

	orders, err := readFile(o.orders, func(r io.Reader, f ingest.Format) (*ingest.Orders, error) {
		return reader.Orders(r, f)
	})
	if err != nil {
		return nil, err
	}
	inventory, err := readFile(o.inventory, func(r io.Reader, f ingest.Format) (*ingest.Inventory, error) {
		return reader.Inventory(r, f)
	})
	if err != nil {
		return nil, err
	}

	engine := compute.NewEngine(compute.WithTopN(cfg.Analysis.TopN))
	res, err := engine.Compute(orders.Records, inventory.Records, o.now)
	if err != nil {
		return nil, err
	}

	ruleEngine, err := rules.New(cfg.Rules)
	if err != nil {
		return nil, err
	}

	issues := append(append([]types.CoercionIssue{}, orders.Issues...), inventory.Issues...)
	return report.New("", res, issues, ruleEngine.Evaluate(res)), nil
}

func readFile[T any](path string, read func(io.Reader, ingest.Format) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, &types.InputError{Err: err}
	}
	defer f.Close()
	return read(f, ingest.DetectFormat(path, ""))
}
