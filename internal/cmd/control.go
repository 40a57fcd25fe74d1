package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/xucongyong/duet/internal/style"
	"github.com/xucongyong/duet/internal/web"
)

// workerFlags are the chat overrides accepted by start, restart and
// config set. Only flags given on the command line are sent.
type workerFlags struct {
	topic        string
	first        string
	model        string
	maxTurns     int
	delay        float64
	typingSpeed  float64
	contextLimit int
	temperature  float64
}

func (f *workerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.topic, "topic", "t", "", "Conversation topic")
	cmd.Flags().StringVar(&f.first, "first", "", "First speaker: bot1 or bot2")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Model name passed to the worker")
	cmd.Flags().IntVar(&f.maxTurns, "max-turns", 0, "Turn limit (0 = unlimited)")
	cmd.Flags().Float64Var(&f.delay, "delay", 0, "Pause between turns, in seconds")
	cmd.Flags().Float64Var(&f.typingSpeed, "typing-speed", 0, "Per-character typing delay, in seconds")
	cmd.Flags().IntVar(&f.contextLimit, "context", 0, "Number of prior messages the worker keeps")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0, "Sampling temperature")
}

// payload returns the overrides for the flags that were set on cmd.
func (f *workerFlags) payload(cmd *cobra.Command) web.WorkerPayload {
	var p web.WorkerPayload
	changed := cmd.Flags().Changed
	if changed("topic") {
		p.Topic = &f.topic
	}
	if changed("first") {
		p.FirstSpeaker = &f.first
	}
	if changed("model") {
		p.Model = &f.model
	}
	if changed("max-turns") {
		p.MaxTurns = &f.maxTurns
	}
	if changed("delay") {
		p.Delay = &f.delay
	}
	if changed("typing-speed") {
		p.TypingSpeed = &f.typingSpeed
	}
	if changed("context") {
		p.ContextLimit = &f.contextLimit
	}
	if changed("temperature") {
		p.Temperature = &f.temperature
	}
	return p
}

var (
	startFlags   workerFlags
	restartFlags workerFlags
)

var startCmd = &cobra.Command{
	Use:     "start",
	GroupID: GroupControl,
	Short:   "Start the chat worker",
	Long: `Ask the control panel to launch the chat worker.

Flags override the saved chat defaults and are remembered for later runs.
Starting while a worker is already running changes nothing.

Examples:
  duet start
  duet start --topic "Is a hot dog a sandwich?" --first bot2
  duet start -m groq/compound-mini --max-turns 10 --delay 5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, func(ctx context.Context, c *web.Client) (*web.ActionResponse, error) {
			return c.Start(ctx, startFlags.payload(cmd))
		})
	},
}

var stopCmd = &cobra.Command{
	Use:     "stop",
	GroupID: GroupControl,
	Short:   "Stop the chat worker",
	Long: `Ask the control panel to stop the chat worker.

The worker receives SIGTERM. Its exit is recorded in the log a moment later.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, func(ctx context.Context, c *web.Client) (*web.ActionResponse, error) {
			return c.Stop(ctx)
		})
	},
}

var restartCmd = &cobra.Command{
	Use:     "restart",
	GroupID: GroupControl,
	Short:   "Restart the chat worker",
	Long: `Stop the running worker, wait for it to exit and launch a fresh one.

Accepts the same overrides as 'duet start'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, func(ctx context.Context, c *web.Client) (*web.ActionResponse, error) {
			return c.Restart(ctx, restartFlags.payload(cmd))
		})
	},
}

func init() {
	startFlags.register(startCmd)
	restartFlags.register(restartCmd)
	rootCmd.AddCommand(startCmd, stopCmd, restartCmd)
}

func runAction(cmd *cobra.Command, fn func(ctx context.Context, c *web.Client) (*web.ActionResponse, error)) error {
	resp, err := fn(cmd.Context(), newClient())
	if err != nil {
		return err
	}
	printAction(cmd.OutOrStdout(), resp)
	return nil
}

func printAction(w io.Writer, resp *web.ActionResponse) {
	fmt.Fprintln(w, style.Flash(resp.OK, resp.Message))
}
