package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/cascade/internal/backend"
	"github.com/samcharles93/cascade/internal/cascade"
	"github.com/samcharles93/cascade/internal/flowdef"
	"github.com/samcharles93/cascade/internal/inference"
	"github.com/samcharles93/cascade/internal/logger"
	"github.com/samcharles93/cascade/internal/prompt"
)

type runSummary struct {
	Name       string           `json:"name"`
	Result     *string          `json:"result"`
	Transcript []prompt.Message `json:"transcript"`
	DurationMS int64            `json:"duration_ms"`
	Error      string           `json:"error,omitempty"`
}

func runCmd() *cli.Command {
	var (
		flowPath    string
		system      string
		maxFailures int64
		jsonOutput  bool
		checkOnly   bool
	)

	return &cli.Command{
		Name:  "run",
		Usage: "Run a cascade flow definition against a backend",
		Flags: append(append([]cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "flow definition (.yaml, .yml or .json)",
				Required:    true,
				Destination: &flowPath,
			},
			&cli.StringFlag{
				Name:        "system",
				Usage:       "system prompt written before the first round",
				Destination: &system,
			},
			&cli.Int64Flag{
				Name:        "max-failures",
				Usage:       "failed step attempts a round tolerates before rolling back (overrides the flow)",
				Value:       cascade.DefaultMaxFailures,
				Destination: &maxFailures,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print a JSON summary instead of the colored rendering",
				Destination: &jsonOutput,
			},
			&cli.BoolFlag{
				Name:        "check",
				Usage:       "validate the flow definition and exit",
				Destination: &checkOnly,
			},
		}, backendFlags()...), samplingFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyBackendConfig(cmd, fileConfig)
			if fileConfig.MaxFailures != nil && !cmd.IsSet("max-failures") {
				maxFailures = *fileConfig.MaxFailures
			}

			flow, err := flowdef.Load(flowPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			c, err := flow.Build()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: invalid flow %s:\n%v", flowPath, err), 1)
			}
			if checkOnly {
				fmt.Fprintf(stdout, "%s: ok (%d rounds)\n", flowPath, len(c.Rounds()))
				return nil
			}
			if maxFailures < 0 {
				return cli.Exit("error: --max-failures must not be negative", 1)
			}
			if cmd.IsSet("max-failures") || fileConfig.MaxFailures != nil {
				for _, r := range c.Rounds() {
					r.SetMaxFailures(int(maxFailures))
				}
			}

			b, err := backend.Open(backendConfig())
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			req := inference.NewRequest(inference.ResolveConfig(samplingOptions()))
			if system != "" {
				req.Transcript.AddSystem(system)
			}

			log.Info("running cascade", "cascade", c.Name, "rounds", len(c.Rounds()), "backend", backendName)
			runErr := c.RunAllRounds(ctx, b, req)
			log.Info("cascade finished", "cascade", c.Name, "duration", c.Duration())

			if jsonOutput {
				return printSummary(c, req, runErr)
			}
			fmt.Fprintln(stdout, c.String())
			if runErr != nil {
				return cli.Exit(fmt.Sprintf("error: %v", runErr), 1)
			}
			result, err := c.Result()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			fmt.Fprintf(stdout, "result: %s\n", result)
			return nil
		},
	}
}

func printSummary(c *cascade.Cascade, req *inference.Request, runErr error) error {
	summary := runSummary{
		Name:       c.Name,
		Transcript: req.Transcript.Messages(),
		DurationMS: c.Duration().Milliseconds(),
	}
	err := runErr
	if err == nil {
		var result string
		result, err = c.Result()
		if _, ok, _ := c.PrimitiveResult(); err == nil && ok {
			summary.Result = &result
		}
	}
	if err != nil {
		summary.Error = err.Error()
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(summary); encErr != nil {
		return encErr
	}
	if err != nil {
		return cli.Exit("", 1)
	}
	return nil
}
