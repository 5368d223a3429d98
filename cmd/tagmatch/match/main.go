package match

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tagmatch/cmd/tagmatch/internal/cli"
	"github.com/walteh/tagmatch/pkg/highlight"
	"github.com/walteh/tagmatch/pkg/tagmatch"
)

type Handler struct {
	file     string
	location string
	policy   string
	closing  bool

	fs  afero.Fs
	out io.Writer
}

func NewMatchCommand() *cobra.Command {
	me := &Handler{closing: true}

	cmd := &cobra.Command{
		Use:   "match <file> <offset|line:col>",
		Short: "print the tag at a location and its matching partner",
		Args:  cobra.ExactArgs(2),
	}

	cmd.Flags().StringVar(&me.policy, "policy", "", "mismatch policy (report or suppress), overriding the config file")
	cmd.Flags().BoolVar(&me.closing, "closing-tags", true, "match from closing tags too; false disables it whatever the config says")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.file, me.location = args[0], args[1]
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

	doc, cfg, err := cli.OpenDocument(ctx, fs, me.file)
	if err != nil {
		return err
	}
	offset, err := cli.ParseLocation(doc.Snapshot, me.location)
	if err != nil {
		return err
	}

	opts := cfg.LocatorOptions()
	if me.policy != "" {
		p, err := tagmatch.ParsePolicy(me.policy)
		if err != nil {
			return errors.Errorf("--policy: %w", err)
		}
		opts = append(opts, tagmatch.WithPolicy(p))
	}
	if !me.closing {
		opts = append(opts, tagmatch.WithClosingTags(false))
	}

	ctrl := highlight.NewController(tagmatch.NewLocator(doc.Dialect, opts...), nil)
	pair := ctrl.CaretMoved(ctx, doc.Lexer, doc.Snapshot, offset)
	if pair == nil {
		_, err := fmt.Fprintf(out, "no tag at %s\n", cli.Place(doc.Snapshot, offset))
		return err
	}

	snap := doc.Snapshot
	fmt.Fprintf(out, "status:     %s\n", pair.Complement.Status)
	anchor := pair.Anchor()
	fmt.Fprintf(out, "anchor:     %s %q\n", cli.Place(snap, anchor.Start()), anchor.Text())
	if pair.HasComplement() {
		fmt.Fprintf(out, "complement: %s %q\n", cli.Place(snap, pair.Complement.Span.Start()), pair.Complement.Span.Text())
	}
	if pair.Complement.Status == tagmatch.StatusSoftMismatch {
		fmt.Fprintf(out, "expected:   %q\nfound:      %q\n", pair.Complement.Expected, pair.Complement.Found)
	}
	if pair.Suppressed {
		fmt.Fprintln(out, "suppressed: true")
	}
	return nil
}
