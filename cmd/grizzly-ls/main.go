// Command grizzly-ls is a language server for grizzly Gherkin feature
// files. It speaks LSP over stdio and indexes the project's Python step
// definitions statically.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Biometria-se/grizzly-lsp-sub000/internal/server"
	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/stepsource"
)

var version = "0.1.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		project  string
		language string
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:     "grizzly-ls",
		Short:   "Language server for grizzly Gherkin feature files",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return run(cmd.Context(), logger, project, language)
		},
	}

	cmd.Flags().StringVar(&project, "project", ".", "project root to scan for step definitions")
	cmd.Flags().StringVar(&language, "language", "en", "feature file language code")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

func run(ctx context.Context, logger *zap.Logger, project, language string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := stepsource.NewPythonSource(project)
	session, err := server.NewSession(source, language)
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	srv := server.New(session, project, logger)
	logger.Info("serving",
		zap.String("project", project),
		zap.String("language", language),
		zap.String("version", version))

	err = srv.Serve(ctx, stdio{in: os.Stdin, out: os.Stdout})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// newLogger builds a stderr logger; stdout carries the LSP stream.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// stdio joins stdin and stdout into the LSP transport.
type stdio struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (s stdio) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s stdio) Write(p []byte) (int, error) { return s.out.Write(p) }

func (s stdio) Close() error {
	inErr := s.in.Close()
	if outErr := s.out.Close(); outErr != nil {
		return outErr
	}
	return inErr
}
