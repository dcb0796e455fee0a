// Command tkpctl validates and renders proposals offline with the same
// validator and template the API uses.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/noah-isme/tkp-service/internal/config"
	"github.com/noah-isme/tkp-service/internal/extract"
	"github.com/noah-isme/tkp-service/internal/render"
	"github.com/noah-isme/tkp-service/internal/state"
	"github.com/noah-isme/tkp-service/internal/tkp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "tkpctl:", err)
		os.Exit(1)
	}
	if err := newRootCmd(cfg.TKP).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Flag defaults come from the same
// TKP_* settings the API server reads.
func newRootCmd(defaults config.TKP) *cobra.Command {
	root := &cobra.Command{
		Use:          "tkpctl",
		Short:        "Validate and render commercial proposals",
		SilenceUsage: true,
	}
	root.AddCommand(newRenderCmd(defaults), newValidateCmd(), newSchemaCmd(defaults))
	return root
}

func newRenderCmd(defaults config.TKP) *cobra.Command {
	var (
		templates string
		name      string
		pretty    bool
		totals    bool
	)
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a proposal JSON file (or stdin) to Markdown",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := loadData(cmd, args)
			if err != nil {
				return err
			}
			out, err := render.New(templates, name).Render(data)
			if err != nil {
				return err
			}
			if pretty {
				r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
				if err != nil {
					return fmt.Errorf("terminal renderer: %w", err)
				}
				if out, err = r.Render(out); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if totals {
				return writeJSON(cmd.OutOrStdout(), data.Summary())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&templates, "templates", defaults.TemplatesPath, "template directory")
	cmd.Flags().StringVar(&name, "template", defaults.TemplateName, "template file name")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "style the Markdown for the terminal")
	cmd.Flags().BoolVar(&totals, "totals", false, "append the totals as JSON")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a proposal JSON file (or stdin) and print the clarifying question if incomplete",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadState(cmd, args)
			if err != nil {
				return err
			}
			if _, errs := tkp.Validate(m); len(errs) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), errs.Question())
				return fmt.Errorf("%d field(s) invalid", len(errs))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func newSchemaCmd(defaults config.TKP) *cobra.Command {
	var (
		path   string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the extraction schema, optionally as sent in strict mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := extract.SchemaLoader{Path: path}.Load()
			if err != nil {
				return err
			}
			if strict {
				schema = extract.Strict(schema)
			}
			return writeJSON(cmd.OutOrStdout(), schema)
		},
	}
	cmd.Flags().StringVar(&path, "path", defaults.SchemaPath, "schema file")
	cmd.Flags().BoolVar(&strict, "strict", false, "apply the strict-mode normalisation")
	return cmd
}

func loadState(cmd *cobra.Command, args []string) (state.Map, error) {
	var (
		raw []byte
		err error
	)
	if len(args) == 0 || args[0] == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, err
	}
	return state.Decode(raw)
}

func loadData(cmd *cobra.Command, args []string) (tkp.Data, error) {
	m, err := loadState(cmd, args)
	if err != nil {
		return tkp.Data{}, err
	}
	data, errs := tkp.Validate(m)
	if len(errs) > 0 {
		return tkp.Data{}, errs
	}
	return data, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
