package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCommand() *cobra.Command {
	var (
		retryCount int
		outputDir  string
	)

	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Run an ad-hoc torrent search outside the job pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			query := strings.Join(args, " ")
			results, err := a.searchClient.Search(cmd.Context(), query, retryCount)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("No results")
				return nil
			}

			for i, result := range results {
				fmt.Printf("%d. %s\n", i+1, result.Title)
				if outputDir == "" {
					fmt.Printf("   %s\n", result.MagnetLink)
					continue
				}

				name := fmt.Sprintf("%s.magnet", result.Title)
				if err := os.MkdirAll(outputDir, 0755); err != nil {
					return err
				}
				path := filepath.Join(outputDir, name)
				if err := os.WriteFile(path, []byte(result.MagnetLink), 0644); err != nil {
					return err
				}
				fmt.Printf("   wrote %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&retryCount, "retry-count", 4, "how many times to retry an empty search")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "write magnet links to files in this directory")

	return cmd
}
