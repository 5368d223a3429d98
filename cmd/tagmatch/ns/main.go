package ns

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/walteh/tagmatch/cmd/tagmatch/internal/cli"
	"github.com/walteh/tagmatch/pkg/hover"
	"github.com/walteh/tagmatch/pkg/nsresolve"
	"github.com/walteh/tagmatch/pkg/position"
	"github.com/walteh/tagmatch/pkg/semtok"
)

type Handler struct {
	file     string
	location string

	fs  afero.Fs
	out io.Writer
}

func NewNSCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "ns <file> [offset|line:col]",
		Short: "resolve namespace prefixes, at one location or throughout a file",
		Args:  cobra.RangeArgs(1, 2),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.file = args[0]
		if len(args) > 1 {
			me.location = args[1]
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

	doc, _, err := cli.OpenDocument(ctx, fs, me.file)
	if err != nil {
		return err
	}
	snap := doc.Snapshot

	if me.location != "" {
		offset, err := cli.ParseLocation(snap, me.location)
		if err != nil {
			return err
		}
		info, err := hover.BuildNamespaceHover(ctx, doc.Lexer, doc.Dialect, snap, offset)
		if err != nil {
			return err
		}
		if info == nil {
			_, err := fmt.Fprintf(out, "no namespace prefix at %s\n", cli.Place(snap, offset))
			return err
		}
		for _, line := range info.Content {
			fmt.Fprintln(out, line)
		}
		return nil
	}

	for _, tok := range semtok.Normalize(ctx, doc.Lexer, position.NewSpan(snap, 0, snap.Length()), doc.Dialect) {
		if tok.Type != semtok.TokenNamespacePrefix {
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", cli.Place(snap, tok.Range.Start()), hover.FormatNamespaceHover(tok.Range.Text(), nsresolve.Resolve(ctx, tok.Range)))
	}
	return nil
}
