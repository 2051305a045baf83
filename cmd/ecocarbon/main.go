package main

import (
	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ecocarbon/ecocarbon/internal/build"
	"github.com/ecocarbon/ecocarbon/internal/config"
	"github.com/ecocarbon/ecocarbon/internal/pipeline"
)

var log = logging.Logger("ecocarbon")

const shortDescription = `
EcoCarbon - Biochar carbon credit simulator
`

const longDescription = `
EcoCarbon simulates turning agricultural waste into biochar and minting carbon
credit tokens for the farmers who supplied it. All state is held in memory and
discarded when the process exits.
`

var (
	cfgFile string

	logLevel string

	rootCmd = &cobra.Command{
		Use:     "ecocarbon",
		Short:   shortDescription,
		Long:    longDescription,
		Version: build.Version,
		Args:    cobra.NoArgs,
		RunE:    runSimulation,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	config.SetDefaults(viper.GetViper())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "logging level")

	rootCmd.PersistentFlags().Int64("seed", pipeline.DefaultSeed, "Seed for the simulation's random source")
	cobra.CheckErr(viper.BindPFlag("seed", rootCmd.PersistentFlags().Lookup("seed")))

	rootCmd.Flags().Bool("demo", false, "Process one demo batch of 5000 kg for farmer_001")
	rootCmd.Flags().Int("pilot", 0, "Simulate a pilot program split into N batches")
	rootCmd.Flags().Bool("analytics", false, "Print an analytics report of the processed batches")

	rootCmd.Flags().Float64("token-price", 75, "USD price per token used for value estimates")
	cobra.CheckErr(viper.BindPFlag("token_price_usd", rootCmd.Flags().Lookup("token-price")))

	// register all commands and their subcommands
	rootCmd.AddCommand(serveCmd)
}

func initConfig() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("ECOCARBON")

	if logLevel != "" {
		ll, err := logging.LevelFromString(logLevel)
		cobra.CheckErr(err)
		logging.SetAllLoggers(ll)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		cobra.CheckErr(viper.ReadInConfig())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
