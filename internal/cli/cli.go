// Package cli implements the command-line interface for wadtik.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/eunmann/wadtik/internal/logctx"
	"github.com/eunmann/wadtik/pkg/logging"
	"github.com/eunmann/wadtik/pkg/s3fetch"
)

const usage = `usage: wadtik [--debug] [--human] <command> [options]
commands:
  info      show package or ticket details
  fakesign  fakesign a ticket file
  unpack    split a package into section files
  pack      build a package from section files
  catalog   write a report of every ticket under a directory`

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return run(ctx, args, os.Stdout)
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	global := flag.NewFlagSet("wadtik", flag.ContinueOnError)
	debug := global.Bool("debug", false, "enable debug logging")
	human := global.Bool("human", false, "human-readable console logs (env "+EnvLogFormat+"=human)")
	if err := global.Parse(args); err != nil {
		return err
	}

	args = global.Args()
	if len(args) == 0 {
		return errors.New(usage)
	}

	var cmd func(context.Context, []string, io.Writer) error
	switch args[0] {
	case "info":
		cmd = runInfo
	case "fakesign":
		cmd = runFakesign
	case "unpack":
		cmd = runUnpack
	case "pack":
		cmd = runPack
	case "catalog":
		cmd = runCatalog
	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}

	pretty, src, err := determineHuman(*human)
	if err != nil {
		return err
	}
	logging.Init(*debug, pretty)
	// Events carry their own phase field, so the subcommand goes under "command".
	ctx = logctx.WithStr(logctx.WithLogger(ctx, *logging.L()), "command", args[0])
	log := logctx.FromContext(ctx)
	log.Debug().Str("log_format_source", string(src)).Msg("logging configured")

	return cmd(ctx, args[1:], stdout)
}

// inputs resolves command arguments that may be s3:// URIs to local files.
type inputs struct {
	tmpDir  string
	fetcher *s3fetch.Fetcher
}

func (in *inputs) s3(ctx context.Context) (*s3fetch.Fetcher, error) {
	if in.fetcher != nil {
		return in.fetcher, nil
	}
	client, err := s3fetch.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	in.fetcher = s3fetch.NewFetcher(client, s3fetch.FetchConfig{TempDir: in.tmpDir})
	return in.fetcher, nil
}

// local returns a local path for path, downloading S3 objects first.
func (in *inputs) local(ctx context.Context, path string) (string, error) {
	if !s3fetch.IsS3URI(path) {
		return path, nil
	}
	f, err := in.s3(ctx)
	if err != nil {
		return "", err
	}
	obj, err := f.Fetch(ctx, path)
	if err != nil {
		return "", err
	}
	return obj.Path, nil
}

// Close removes downloaded inputs.
func (in *inputs) Close() error {
	if in.fetcher == nil {
		return nil
	}
	return in.fetcher.Cleanup()
}
