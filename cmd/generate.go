package main

import (
	"github.com/spf13/cobra"

	"github.com/tokyo3/bestwines/internal/site"
)

var generateOutputDir string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the static wine site from stored data",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		outputDir := generateOutputDir
		if outputDir == "" {
			outputDir = cfg.Site.OutputDir
		}

		gen := site.NewGenerator(st, outputDir, cfg.Site.Title)
		return gen.Generate(ctx)
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateOutputDir, "output", "", "output directory (default from config)")
	rootCmd.AddCommand(generateCmd)
}
