package classify

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/walteh/tagmatch/cmd/tagmatch/internal/cli"
	"github.com/walteh/tagmatch/pkg/position"
	"github.com/walteh/tagmatch/pkg/semtok"
)

type Handler struct {
	file string
	raw  bool

	fs  afero.Fs
	out io.Writer
}

func NewClassifyCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "classify <file>",
		Short: "print the namespace and closing-tag annotations of a file",
		Args:  cobra.ExactArgs(1),
	}

	cmd.Flags().BoolVar(&me.raw, "raw", false, "print the lexer tokens instead of the annotations")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.file = args[0]
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

	if me.raw {
		for _, tok := range doc.Lexer.Tokens() {
			fmt.Fprintf(out, "%s\t%s\t%q\n", cli.Place(snap, tok.Span.Start()), tok.Category, tok.Span.Text())
		}
		return nil
	}

	for _, tok := range semtok.Normalize(ctx, doc.Lexer, position.NewSpan(snap, 0, snap.Length()), doc.Dialect) {
		fmt.Fprintf(out, "%s\t%s\t%q\n", cli.Place(snap, tok.Range.Start()), tok.Type, tok.Range.Text())
	}
	return nil
}
