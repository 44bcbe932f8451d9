package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "robox",
	Short: "ROBO-X voice kiosk",
	Long: `robox runs the ROBO-X kiosk: visitors speak or type a question and the
answer is shown and read out loud.

Configuration is read from, in order:
  1. --config flag (explicit path)
  2. ./robox.yaml
  3. $HOME/.config/robox/config.yaml

Environment Variables:
  DEEPGRAM_API_KEY  - speech recognition and synthesis
  OPENAI_API_KEY    - replies when reply.provider is openai
  GROQ_API_KEY      - replies when reply.provider is groq
  ROBOX_<SECTION>_<KEY> overrides any config value, e.g. ROBOX_SPEECH_RATE`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./robox.yaml or $HOME/.config/robox/config.yaml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configSchemaCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
