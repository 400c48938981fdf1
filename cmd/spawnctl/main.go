// Command spawnctl runs single commands and YAML-described pipelines
// through the go-spawn library.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	spawn "github.com/axondata/go-spawn"
)

var (
	flagTimeout time.Duration
	flagJSON    bool
	flagVerbose bool
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var exitErr *spawn.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Output.ExitCode())
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "spawnctl",
		Short:         "Run commands and pipelines without a shell",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().DurationVar(&flagTimeout, "timeout", spawn.DefaultTimeout, "Timeout budget for the whole run")
	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print the captured output as JSON")
	root.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Emit debug events to stderr")

	root.AddCommand(newRunCmd())
	root.AddCommand(newPipelineCmd())
	return root
}

func logger() zerolog.Logger {
	if !flagVerbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.DebugLevel).
		With().Timestamp().Logger()
}

func newRunCmd() *cobra.Command {
	var dir string
	var env []string

	cmd := &cobra.Command{
		Use:   "run [flags] -- program [args...]",
		Short: "Run one program with a literal argument vector",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := spawn.NewCommand(args[0], args[1:]...).
				Timeout(flagTimeout).
				Logger(logger())
			if dir != "" {
				c = c.WorkingDir(dir)
			}
			for _, kv := range env {
				k, v, ok := splitEnv(kv)
				if !ok {
					return fmt.Errorf("invalid --env %q, want KEY=VALUE", kv)
				}
				c = c.Env(k, v)
			}

			out, err := c.Run(context.Background())
			return report(cmd, out, err)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Working directory")
	cmd.Flags().StringArrayVar(&env, "env", nil, "Environment variable KEY=VALUE (repeatable)")
	return cmd
}

// pipelineSpec is the YAML document format accepted by the pipeline
// subcommand
type pipelineSpec struct {
	Timeout time.Duration `yaml:"timeout"`
	Stages  []stageSpec   `yaml:"stages"`
}

type stageSpec struct {
	Program string            `yaml:"program"`
	Args    []string          `yaml:"args"`
	Dir     string            `yaml:"dir"`
	Env     map[string]string `yaml:"env"`
}

func newPipelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pipeline <file.yaml>",
		Short: "Run a pipeline described by a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var spec pipelineSpec
			if err := yaml.Unmarshal(data, &spec); err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}
			if len(spec.Stages) == 0 {
				return fmt.Errorf("%s: no stages", args[0])
			}

			stages := make([]spawn.Command, 0, len(spec.Stages))
			for i, st := range spec.Stages {
				if st.Program == "" {
					return fmt.Errorf("%s: stage %d has no program", args[0], i)
				}
				c := spawn.NewCommand(st.Program, st.Args...).Logger(logger())
				if st.Dir != "" {
					c = c.WorkingDir(st.Dir)
				}
				if len(st.Env) > 0 {
					c = c.EnvMap(st.Env)
				}
				stages = append(stages, c)
			}

			timeout := flagTimeout
			if spec.Timeout > 0 && !cmd.Flags().Changed("timeout") {
				timeout = spec.Timeout
			}

			out, err := spawn.NewPipeline(stages...).
				Timeout(timeout).
				Run(context.Background())
			return report(cmd, out, err)
		},
	}
}

// report prints the captured output and passes failures back to cobra.
// An *ExitError is still printed in full before the non-zero exit.
func report(cmd *cobra.Command, out spawn.Output, err error) error {
	if err != nil && !errors.Is(err, spawn.ErrNonZeroExit) {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		if jerr := enc.Encode(out); jerr != nil {
			return jerr
		}
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), out.Stdout())
	fmt.Fprint(cmd.ErrOrStderr(), out.Stderr())
	return err
}

func splitEnv(kv string) (string, string, bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], i > 0
		}
	}
	return "", "", false
}
