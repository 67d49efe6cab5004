// Command assemble renders one brief against a local template directory and
// prints the document as JSON. It needs no database or queue.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"scribe.app/engine/common/id"
	"scribe.app/engine/common/logger"
	"scribe.app/engine/core/config"
	"scribe.app/engine/internal/assemble"
	"scribe.app/engine/internal/block"
	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/pipeline"
	"scribe.app/engine/internal/properties"
	"scribe.app/engine/internal/template"
)

type options struct {
	templateType string
	complexity   string
	templateDir  string
	schemaPath   string
	offline      bool
	compact      bool
	verbose      bool
}

type output struct {
	Blocks       []block.Block       `json:"blocks"`
	Properties   map[string]any      `json:"properties"`
	Flags        []model.Flag        `json:"flags,omitempty"`
	Conflicts    []model.Conflict    `json:"conflicts,omitempty"`
	SectionOrder []string            `json:"section_order"`
	Stats        assemble.Stats      `json:"stats"`
	Extracted    model.ExtractedData `json:"extracted"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "assemble [brief.json]",
		Short: "Assemble a document from a brief and a local template",
		Long: `Reads a JSON brief from a file (or stdin when the argument is "-" or missing),
assembles it against the template directory and prints the block tree.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return run(cmd.Context(), opts, path, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.templateType, "template", "t", "", "template type, e.g. video (required)")
	f.StringVarP(&opts.complexity, "complexity", "c", "", "complexity tier: simple, standard or complex")
	f.StringVar(&opts.templateDir, "templates", "", "template directory (defaults to TEMPLATE_DIR)")
	f.StringVar(&opts.schemaPath, "schema", "", "record property schema JSON file")
	f.BoolVar(&opts.offline, "offline", false, "skip reasoning calls and use local extraction")
	f.BoolVar(&opts.compact, "compact", false, "print compact JSON")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline progress to stderr")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

func run(ctx context.Context, opts options, briefPath string, stdin io.Reader, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	// stdout carries the document, so logs go to stderr.
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(logger.NewTraceHandler(
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}),
	)))

	if err := id.Init(3); err != nil {
		return fmt.Errorf("initializing id generator: %w", err)
	}

	if opts.offline {
		cfg.ReasonerLLM.APIKey = ""
		cfg.OrganizerLLM.APIKey = ""
	}
	dir := cfg.Templates.Dir
	if opts.templateDir != "" {
		dir = opts.templateDir
	}

	brief, err := readBrief(briefPath, stdin)
	if err != nil {
		return err
	}

	var schema properties.Schema
	if opts.schemaPath != "" {
		raw, err := os.ReadFile(opts.schemaPath)
		if err != nil {
			return fmt.Errorf("reading schema: %w", err)
		}
		if schema, err = properties.ParseSchema(raw); err != nil {
			return fmt.Errorf("parsing schema: %w", err)
		}
	}

	engine, err := pipeline.FromConfig(cfg, template.NewFileSource(dir), nil)
	if err != nil {
		return err
	}

	ident := template.Identity{Type: opts.templateType}
	if opts.complexity != "" {
		ident.Complexity = model.ParseComplexity(opts.complexity)
	}

	res, err := engine.Run(ctx, assemble.Request{Brief: brief, Template: ident, Schema: schema})
	if err != nil {
		return fmt.Errorf("assembling %s: %w", ident.Key(), err)
	}

	enc := json.NewEncoder(stdout)
	if !opts.compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(output{
		Blocks:       res.Blocks,
		Properties:   res.Properties,
		Flags:        res.Flags,
		Conflicts:    res.Conflicts,
		SectionOrder: res.SectionOrder,
		Stats:        res.Stats,
		Extracted:    res.Extracted,
	})
}

func readBrief(path string, stdin io.Reader) (model.Brief, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading brief: %w", err)
	}

	var brief model.Brief
	if err := json.Unmarshal(raw, &brief); err != nil {
		return nil, fmt.Errorf("brief must be a JSON object: %w", err)
	}
	return brief, nil
}
