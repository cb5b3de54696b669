// Command tendercored loads TendermintParams and prints the effective
// configuration. It is an operator convenience wrapping the engine, not part
// of the consensus surface: generalizes decubectl's cobra root + viper
// config-binding idiom (REChain-Network-Solutions-DeCub/cmd/decubectl).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/clearmatics/tendercore/internal/log"
	"github.com/clearmatics/tendercore/tendermint/config"
)

var (
	cfgFile string
	params  config.TendermintParams
)

func main() {
	cobra.OnInitialize(initConfig)

	root := &cobra.Command{
		Use:   "tendercored",
		Short: "Operator CLI for the tendercore consensus engine",
		Long:  "tendercored loads engine parameters and reports the effective configuration a node would run with.",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, defaults to built-in defaults if unset)")

	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective TendermintParams",
		Run: func(cmd *cobra.Command, args []string) {
			out, err := yaml.Marshal(params)
			if err != nil {
				log.Root().Crit("failed to marshal effective config", "err", err)
				os.Exit(1)
			}
			fmt.Print(string(out))
		},
	}
}

// initConfig seeds viper with the built-in defaults, then overlays cfgFile
// and the environment on top, and unmarshals the merged result into
// params — the decubectl idiom (REChain-Network-Solutions-DeCub's
// cmd/decubectl/main.go initConfig/viper.Unmarshal), rather than a
// parallel plain-YAML load that would leave viper's own read unused.
func initConfig() {
	setViperDefaults(config.Default)
	viper.SetEnvPrefix("tendercore")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			log.Root().Crit("failed to read config file", "path", cfgFile, "err", err)
			os.Exit(1)
		}
	}

	params = config.Default
	if err := viper.Unmarshal(&params); err != nil {
		log.Root().Crit("failed to decode effective config", "err", err)
		os.Exit(1)
	}
}

// setViperDefaults registers d's fields as viper's fallback values, so an
// unset cfgFile (or a partial one) still resolves through viper.Unmarshal
// to the same values config.Default carries.
func setViperDefaults(d config.TendermintParams) {
	viper.SetDefault("propose_base", d.ProposeBase)
	viper.SetDefault("propose_delta", d.ProposeDelta)
	viper.SetDefault("prevote_base", d.PrevoteBase)
	viper.SetDefault("prevote_delta", d.PrevoteDelta)
	viper.SetDefault("precommit_base", d.PrecommitBase)
	viper.SetDefault("precommit_delta", d.PrecommitDelta)
	viper.SetDefault("peer_queue_size", d.PeerQueueSize)
	viper.SetDefault("log_level", d.LogLevel)
}
