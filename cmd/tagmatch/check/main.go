package check

import (
	"context"
	"io"
	"os"
	"sort"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tagmatch/pkg/config"
	"github.com/walteh/tagmatch/pkg/diagnostic"
	"github.com/walteh/tagmatch/pkg/fragment"
	"github.com/walteh/tagmatch/pkg/workspace"
)

var ErrProblemsFound = errors.Base("markup errors found")

type Handler struct {
	dir     string
	include []string
	format  string // text, vscode
	strict  bool
	color   bool

	fs  afero.Fs
	out io.Writer
}

func NewCheckCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "check [dir]",
		Short: "report markup problems in every matching file under dir",
		Args:  cobra.MaximumNArgs(1),
	}

	cmd.Flags().StringSliceVar(&me.include, "include", nil, "glob patterns to check, overriding the config file")
	cmd.Flags().StringVar(&me.format, "format", "text", "output format: text or vscode")
	cmd.Flags().BoolVar(&me.strict, "strict", false, "stop each file at its first structural problem")
	cmd.Flags().BoolVar(&me.color, "color", false, "color text output")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.dir = "."
		if len(args) > 0 {
			me.dir = args[0]
		}
		me.out = cmd.OutOrStdout()
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	fs := me.fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	out := me.out
	if out == nil {
		out = os.Stdout
	}

	if me.format != "text" && me.format != "vscode" {
		return errors.Errorf("unknown format %q", me.format)
	}

	cfg, _, err := config.Find(fs, me.dir)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}
	if len(me.include) > 0 {
		cfg.Include = me.include
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	var opts []fragment.Option
	if me.strict {
		opts = append(opts, fragment.WithMode(fragment.ModeStrict))
	}

	results, err := workspace.New(fs, me.dir, workspace.WithConfig(cfg)).
		Check(ctx, diagnostic.NewDefaultGenerator(opts...))
	if err != nil {
		return errors.Errorf("checking %s: %w", me.dir, err)
	}

	paths := make([]string, 0, len(results))
	for p := range results {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	failed := false
	for _, p := range paths {
		diags := results[p]
		if len(diags.Errors) > 0 {
			failed = true
		}
		if me.format == "text" && diags.Len() == 0 {
			continue
		}

		var f diagnostic.Formatter
		if me.format == "vscode" {
			f = diagnostic.NewVSCodeFormatter()
		} else {
			f = diagnostic.NewTextFormatter(p, me.color)
		}
		b, err := f.Format(diags)
		if err != nil {
			return errors.Errorf("formatting %s: %w", p, err)
		}
		if me.format == "vscode" {
			if _, err := io.WriteString(out, p+"\n"); err != nil {
				return errors.Errorf("writing output: %w", err)
			}
			b = append(b, '\n')
		}
		if _, err := out.Write(b); err != nil {
			return errors.Errorf("writing output: %w", err)
		}
	}

	if failed {
		return ErrProblemsFound
	}
	return nil
}
