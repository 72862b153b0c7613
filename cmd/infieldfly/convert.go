package main

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var episodeNamePattern = regexp.MustCompile(`(?i)s([0-9]{2,})e([0-9]{2,})`)

func newConvertCommand() *cobra.Command {
	var (
		keyword   string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "convert <file>...",
		Short: "Convert media files by hand, outside the job pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			dir := outputDir
			if dir == "" {
				dir = a.cfg.FinalDirectory
			}

			for _, source := range args {
				name, err := convertedName(cmd, a, keyword, source)
				if err != nil {
					return err
				}

				dest := filepath.Join(dir, name+".mp4")
				if err := a.converter.Convert(cmd.Context(), source, dest); err != nil {
					return fmt.Errorf("failed to convert %s: %w", source, err)
				}
				fmt.Printf("Converted %s -> %s\n", source, dest)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "tracked-series keyword used to name the output after its episode")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for the converted files (default the final directory)")

	return cmd
}

// convertedName picks the output base name: the episode's library title when
// a tracked-series keyword is given, the source base name otherwise
func convertedName(cmd *cobra.Command, a *app, keyword, source string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if keyword == "" {
		return base, nil
	}

	match := episodeNamePattern.FindStringSubmatch(base)
	if match == nil {
		return "", fmt.Errorf("no sNNeNN tag in %s; cannot look up the episode", base)
	}
	season, _ := strconv.Atoi(match[1])
	episode, _ := strconv.Atoi(match[2])

	ep, err := a.episodes.TrackedEpisode(cmd.Context(), keyword, season, episode)
	if err != nil {
		return "", err
	}
	if ep == nil {
		return "", fmt.Errorf("no episode s%02de%02d tracked under %q", season, episode, keyword)
	}

	name := ep.PlexTitle()
	for from, to := range a.cfg.StringSubstitutions {
		name = strings.ReplaceAll(name, from, to)
	}
	return name, nil
}
