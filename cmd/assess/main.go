package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"credit-risk/domain"
	"credit-risk/ml"
	"credit-risk/repository"
	"credit-risk/service"
)

type cliOptions struct {
	modelPath string
	inputPath string
	narrative bool
	compact   bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("assess: %v", err)
	}
	if err := run(context.Background(), opts, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("assess: %v", err)
	}
}

func parseFlags(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("assess", flag.ContinueOnError)
	fs.StringVar(&opts.modelPath, "model", "models/credit_risk.json", "Path to the model artifact")
	fs.StringVar(&opts.inputPath, "input", "-", "JSON client profile to assess (- reads STDIN)")
	fs.BoolVar(&opts.narrative, "narrative", false, "Attach a plain-English summary")
	fs.BoolVar(&opts.compact, "compact", false, "Print single-line JSON")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [--input FILE] [options]\n\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.modelPath = strings.TrimSpace(opts.modelPath)
	opts.inputPath = strings.TrimSpace(opts.inputPath)
	if opts.modelPath == "" {
		fs.Usage()
		return opts, errors.New("missing required --model file")
	}
	if opts.inputPath == "" {
		opts.inputPath = "-"
	}
	return opts, nil
}

func run(ctx context.Context, opts cliOptions, stdin io.Reader, stdout io.Writer) error {
	model, err := ml.LoadModel(opts.modelPath)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	in := stdin
	if opts.inputPath != "-" {
		f, err := os.Open(opts.inputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	profile := domain.DefaultProfile()
	dec := json.NewDecoder(in)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&profile); err != nil {
		return fmt.Errorf("decode profile: %w", err)
	}

	var narrator service.Narrator
	if opts.narrative {
		narrator = service.NewNarrativeService(service.NarrativeConfig{}, nil)
	}
	svc := service.NewAssessmentService(
		ml.NewStaticHolder(model),
		repository.NewAssessmentRepositoryMemory(),
		nil,
		narrator,
		nil,
		nil,
	)

	assessment, err := svc.Assess(ctx, profile)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	if !opts.compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(assessment)
}
