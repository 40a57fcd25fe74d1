package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xucongyong/duet/internal/config"
	"github.com/xucongyong/duet/internal/style"
)

var (
	configLocal bool
	configFlags workerFlags
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: GroupConfig,
	Short:   "Show or change the chat defaults",
	Long: `Show the chat defaults the panel uses for the next start.

With --local, print the settings resolved from the settings file and the
CHAT_* environment variables instead of asking the panel.

Chat defaults and the schedule window saved in the settings file take
precedence over CHAT_DEFAULT_* variables. The environment only fills in
keys the file does not set, so a value saved from the panel survives a
restart even when the variable is still exported.

Examples:
  duet config
  duet config --local
  duet config set --topic "Tabs or spaces?" --max-turns 12
  duet config path`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change chat defaults on the panel",
	Long: `Change chat defaults on the running panel. The panel writes them to the
settings file so they survive a restart.`,
	Args: cobra.NoArgs,
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), settingsPath())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd, configPathCmd)
	configCmd.Flags().BoolVar(&configLocal, "local", false, "Print the resolved settings file instead of asking the panel")
	configFlags.register(configSetCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if configLocal {
		path := settingsPath()
		s, err := config.Load(path)
		if err != nil {
			return err
		}
		data, err := config.Encode(path, s)
		if err != nil {
			return fmt.Errorf("encoding settings: %w", err)
		}
		_, err = out.Write(data)
		return err
	}

	p, err := newClient().Config(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprint(out, workerTable(*p).Render())
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	p := configFlags.payload(cmd)
	if p.Empty() {
		return fmt.Errorf("nothing to change: pass at least one flag (see 'duet config set --help')")
	}
	resp, err := newClient().SaveConfig(cmd.Context(), p)
	if err != nil {
		return err
	}
	printAction(cmd.OutOrStdout(), resp)
	if resp.OK {
		fmt.Fprintln(cmd.OutOrStdout(), style.Hint("applies to the next start"))
	}
	return nil
}
