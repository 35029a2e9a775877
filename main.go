package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/saworbit/ioprimer/internal/logging"
	"github.com/saworbit/ioprimer/internal/metrics"
	"github.com/saworbit/ioprimer/internal/version"
	"github.com/saworbit/ioprimer/pkg/config"
	"github.com/saworbit/ioprimer/pkg/filewrite"
	"github.com/saworbit/ioprimer/pkg/greeting"
	"github.com/saworbit/ioprimer/pkg/journal"
	"github.com/saworbit/ioprimer/pkg/observe"
)

// observeSettle gives the watcher a short window to deliver trailing events.
const observeSettle = 200 * time.Millisecond

func main() {
	if err := execute(nil, nil); err != nil {
		logging.Log.Fatal(err)
	}
}

// execute runs the CLI. Nil args means os.Args, nil out means stdout.
func execute(args []string, out io.Writer) error {
	root := newRootCmd()
	if args != nil {
		root.SetArgs(args)
	}
	if out != nil {
		root.SetOut(out)
	}
	return root.Execute()
}

type rootOptions struct {
	configPath string
	logLevel   string
	cfg        *config.WriteConfig
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "ioprimer",
		Short:         "ioprimer - fail-fast and whole-file write walkthroughs",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if err := config.LoadFile(cfg, opts.configPath); err != nil {
				return err
			}
			config.LoadFromEnv(cfg)
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = opts.logLevel
			}
			if err := logging.SetLevel(cfg.LogLevel); err != nil {
				return err
			}
			metrics.SetBuildInfo(version.Version)
			opts.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML file with write defaults")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(newGreetCmd(), newWriteCmd(opts), newHistoryCmd(opts))
	return root
}

func newGreetCmd() *cobra.Command {
	var empty bool

	cmd := &cobra.Command{
		Use:   "greet",
		Short: "Print a greeting and a record, aborting if the greeting is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return greeting.Run(cmd.OutOrStdout(), greeting.Options{SkipAppend: empty})
		},
	}

	cmd.Flags().BoolVar(&empty, "empty", false, "Skip appending the greeting so the precondition fails")
	return cmd
}

func newWriteCmd(opts *rootOptions) *cobra.Command {
	var (
		path        string
		first       string
		second      string
		policy      string
		journalDir  string
		metricsFile string
		watch       bool
	)

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write two payloads to one path with the two whole-file write shapes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			flags := cmd.Flags()
			if flags.Changed("path") {
				cfg.Path = path
			}
			if flags.Changed("first") {
				cfg.FirstPayload = first
			}
			if flags.Changed("second") {
				cfg.SecondPayload = second
			}
			if flags.Changed("policy") {
				cfg.FailurePolicy = policy
			}
			if flags.Changed("journal-dir") {
				cfg.JournalDir = journalDir
			}
			if flags.Changed("metrics-file") {
				cfg.MetricsFile = metricsFile
			}
			if flags.Changed("observe") {
				cfg.Observe = watch
			}
			return runWrite(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&path, "path", config.DefaultPath, "File both writes target")
	cmd.Flags().StringVar(&first, "first", config.DefaultFirstPayload, "Payload for the explicit-handle write")
	cmd.Flags().StringVar(&second, "second", config.DefaultSecondPayload, "Payload for the one-call write")
	cmd.Flags().StringVar(&policy, "policy", config.PolicyRemove, "Failure policy: remove, keep or atomic")
	cmd.Flags().StringVar(&journalDir, "journal-dir", "", "Record every write in a Pebble journal in this directory")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	cmd.Flags().BoolVar(&watch, "observe", false, "Log filesystem events on the target while writing")
	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		journalDir string
		path       string
		show       bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List writes recorded in a journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("journal-dir") {
				opts.cfg.JournalDir = journalDir
			}
			if opts.cfg.JournalDir == "" {
				return errors.New("journal-dir is required")
			}
			return runHistory(opts.cfg.JournalDir, path, show, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&journalDir, "journal-dir", "", "Directory holding the Pebble journal")
	cmd.Flags().StringVar(&path, "path", "", "Only list writes to this path")
	cmd.Flags().BoolVar(&show, "show", false, "Print each recorded payload")
	return cmd
}

func runWrite(ctx context.Context, cfg *config.WriteConfig, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.For("write")
	writerOpts := []filewrite.Option{filewrite.WithPolicy(cfg.FailurePolicy)}

	// Exit handlers run when a write aborts the process; the defers cover the
	// normal path.
	if cfg.MetricsFile != "" {
		dump := func() {
			if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
				log.WithError(err).Warn("metrics dump failed")
			}
		}
		logrus.RegisterExitHandler(dump)
		defer dump()
	}

	if cfg.JournalDir != "" {
		j, err := journal.Open(cfg.JournalDir)
		if err != nil {
			return errors.Wrap(err, "open journal")
		}
		logrus.RegisterExitHandler(func() { _ = j.Close() })
		defer j.Close()
		writerOpts = append(writerOpts, filewrite.WithRecorder(j))
	}

	if cfg.Observe {
		obs, err := observe.Start(ctx, cfg.Path)
		if err != nil {
			log.WithError(err).Warn("observer not started")
		} else {
			defer obs.Stop(observeSettle)
		}
	}

	w := filewrite.New(writerOpts...)
	w.CreateFileWriteAll(cfg.Path, []byte(cfg.FirstPayload))
	w.CreateFileWrite(cfg.Path, []byte(cfg.SecondPayload))

	fmt.Fprintln(out, "Hello Modules")
	return nil
}

func runHistory(dir, path string, show bool, out io.Writer) error {
	j, err := journal.OpenReadOnly(dir)
	if err != nil {
		return errors.Wrap(err, "open journal")
	}
	defer j.Close()

	entries, err := j.Entries(path)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "no writes recorded")
		return nil
	}

	shape := color.New(color.FgCyan).SprintFunc()
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %-9s  %s  %s  %s\n",
			e.Time().Format(time.RFC3339Nano),
			shape(e.Shape),
			e.Path,
			humanize.Bytes(uint64(e.Size)),
			e.CID,
		)
		if !show {
			continue
		}
		content, err := e.Content()
		if err != nil {
			return errors.Wrapf(err, "read entry %s", e.ID)
		}
		fmt.Fprintf(out, "    %q\n", content)
	}

	return nil
}
