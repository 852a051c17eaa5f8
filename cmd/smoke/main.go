// Command smoke runs a scripted game against a live server through its REST
// API and checks every reply. It is meant as a post-deploy check: the
// built-in script exercises each selection outcome and ends in a win, and
// custom scripts can be supplied as JSON or YAML:
//
//	name: blitz-smoke
//	preset: blitz
//	steps:
//	  - {reserve: 0, expect: "Selected stack piece"}
//	  - {cell: [1, 1], expect: "Played stack piece"}
//
// Usage: smoke [--url http://localhost:8080] [--script file.yaml] [--keep]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "smoke",
		Usage: "Play a scripted game against a running server and check the replies",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Value:   "http://localhost:8080",
				Usage:   "Game server URL",
				Sources: cli.EnvVars("GOBBLETS_API_URL"),
			},
			&cli.StringFlag{
				Name:  "script",
				Usage: "Script file (.json, .yaml, .yml); the built-in script when empty",
			},
			&cli.BoolFlag{
				Name:  "keep",
				Usage: "Leave the session on the server after the run",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log every step",
			},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logCfg := zap.NewDevelopmentConfig()
	if !cmd.Bool("debug") {
		logCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := logCfg.Build()
	if err != nil {
		return err
	}
	defer logger.Sync()

	script := DefaultScript()
	if path := cmd.String("script"); path != "" {
		if script, err = LoadScript(path); err != nil {
			return err
		}
	}

	runner := NewRunner(NewClient(cmd.String("url")), logger, cmd.Bool("keep"))
	report, err := runner.Run(ctx, script)
	if err != nil {
		return err
	}

	printReport(report)
	if !report.OK() {
		return fmt.Errorf("%d check(s) failed", len(report.Failures))
	}
	return nil
}

func printReport(r *Report) {
	fmt.Printf("\nScript: %s\n", r.Script)
	fmt.Printf("Session: %s\n", r.SessionID)
	fmt.Printf("Steps: %d\n", r.Steps)
	if r.Final != nil {
		fmt.Printf("Status: %s\n", r.Final.Status)
	}

	if r.OK() {
		fmt.Println("✅ All checks passed")
		return
	}
	for _, f := range r.Failures {
		fmt.Println("❌ " + f)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
