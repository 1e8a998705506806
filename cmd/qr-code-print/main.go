package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kcrt/qr-code-print/assemble"
	"github.com/kcrt/qr-code-print/config"
	"github.com/kcrt/qr-code-print/observability"
	"github.com/kcrt/qr-code-print/parser"
	"github.com/kcrt/qr-code-print/writer"
)

type options struct {
	targetDir string
	verbose   bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "qr-code-print: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: qr-code-print [flags] [target-dir]\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Reads settings.json, data.csv, and base.pdf from the target\ndirectory and writes output.pdf next to them.\n\n")
		flag.PrintDefaults()
	}
	flag.BoolVar(&opts.verbose, "v", false, "Log per-page assembly detail")
	flag.Parse()

	switch flag.NArg() {
	case 0:
		opts.targetDir = "."
	case 1:
		opts.targetDir = flag.Arg(0)
	default:
		flag.Usage()
		return options{}, fmt.Errorf("at most one target directory")
	}
	return opts, nil
}

func run(opts options) error {
	settingsPath := filepath.Join(opts.targetDir, "settings.json")
	csvPath := filepath.Join(opts.targetDir, "data.csv")
	templatePath := filepath.Join(opts.targetDir, "base.pdf")
	outputPath := filepath.Join(opts.targetDir, "output.pdf")

	for _, path := range []string{settingsPath, csvPath, templatePath} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("required input %q: %w", path, err)
		}
	}

	log := observability.NewTextLogger(os.Stderr, opts.verbose)

	schema, sizes, err := config.LoadSettings(settingsPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	records, err := config.LoadRecords(csvPath)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	log.Info("inputs loaded",
		observability.Int("fields", len(schema.FieldOrder)),
		observability.Int("records", len(records)))

	templateData, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	doc, err := parser.Load(templateData)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}

	asm, err := assemble.New(doc, schema,
		assemble.WithFontSizes(sizes),
		assemble.WithLogger(log))
	if err != nil {
		return fmt.Errorf("prepare assembler: %w", err)
	}
	if err := asm.Run(records); err != nil {
		return err
	}

	// Serialize fully before touching the output path so a failed run
	// never leaves a truncated file behind.
	var buf bytes.Buffer
	if err := writer.Write(&buf, doc); err != nil {
		return fmt.Errorf("serialize output: %w", err)
	}
	if err := os.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info("output written",
		observability.String("path", outputPath),
		observability.Int("bytes", buf.Len()))
	return nil
}
