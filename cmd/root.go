package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "face-catalog",
	Short: "A face catalog and identification service",
	Long: `Face Catalog maintains per-account collections of detected faces,
clusters them into people and identifies faces on uploaded images
against the catalog using embedding similarity search.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug, _ := rootCmd.PersistentFlags().GetBool("debug"); debug {
		log.SetLevel(logrus.DebugLevel)
	}
}
