package serve_lsp

import (
	"context"
	"io"
	"net"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tagmatch/pkg/lsp"
)

type Handler struct {
	debug   bool
	socket  string
	version string

	in  io.Reader
	out io.WriteCloser
}

func NewServeLSPCommand(version string) *cobra.Command {
	me := &Handler{version: version}

	cmd := &cobra.Command{
		Use:   "serve-lsp",
		Short: "start the language server on stdin/stdout",
	}

	cmd.Flags().BoolVar(&me.debug, "debug", false, "forward debug logs to the client")
	cmd.Flags().StringVar(&me.socket, "socket", "", "serve one client on this unix socket instead of stdio")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	level := zerolog.InfoLevel
	if me.debug {
		level = zerolog.DebugLevel
	}

	in, out := me.in, me.out
	if me.socket != "" {
		conn, err := me.accept(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		in, out = conn, conn
	}
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	server := lsp.NewServer(
		lsp.WithFs(afero.NewOsFs()),
		lsp.WithVersion(me.version),
		lsp.WithLogLevel(level),
	)

	zerolog.Ctx(ctx).Debug().Str("server", server.ID()).Str("socket", me.socket).Msg("serving")

	if err := server.Run(ctx, in, out); err != nil {
		return errors.Errorf("running language server: %w", err)
	}
	return nil
}

// accept listens on the unix socket and waits for a single client.
func (me *Handler) accept(ctx context.Context) (net.Conn, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", me.socket)
	if err != nil {
		return nil, errors.Errorf("listening on %s: %w", me.socket, err)
	}
	defer ln.Close()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	zerolog.Ctx(ctx).Info().Str("socket", me.socket).Msg("waiting for client")

	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Errorf("waiting for client: %w", ctx.Err())
		}
		return nil, errors.Errorf("accepting on %s: %w", me.socket, err)
	}
	return conn, nil
}
