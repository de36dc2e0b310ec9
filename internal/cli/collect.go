package cli

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/happyhackingspace/openie/internal/collect"
	"github.com/spf13/cobra"
)

func (c *CLI) newCollectCommand() *cobra.Command {
	config := collect.DefaultConfig()
	var sitesFile, output string
	var timeout, delay int

	cmd := &cobra.Command{
		Use:   "collect [url...]",
		Short: "Fetch web pages and write their sentences as tagged lines",
		Example: `  openie collect https://en.wikipedia.org/wiki/Marie_Curie -o sentences.txt
  openie collect --sites sites.txt --max-per-site 20 -o sentences.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			seeds := args
			if sitesFile != "" {
				lines, err := collect.LoadLines(sitesFile)
				if err != nil {
					return err
				}
				seeds = append(seeds, lines...)
			}
			if len(seeds) == 0 {
				return cmd.Help()
			}
			config.Timeout = time.Duration(timeout) * time.Second
			config.Delay = time.Duration(delay) * time.Millisecond

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				bw := bufio.NewWriter(f)
				defer func() { _ = bw.Flush() }()
				w = bw
			}

			stats, err := collect.New(config).Collect(cmd.Context(), seeds, w)
			if err != nil {
				return err
			}
			slog.Info("Collection complete", "pages", stats.Pages, "sentences", stats.Sentences, "failed", stats.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&sitesFile, "sites", "", "File with seed URLs (one per line)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().IntVar(&timeout, "timeout", 30, "HTTP timeout in seconds")
	cmd.Flags().IntVar(&delay, "delay", 800, "Delay between requests in ms")
	cmd.Flags().StringVar(&config.UserAgent, "user-agent", config.UserAgent, "User-Agent header")
	cmd.Flags().IntVar(&config.MaxPerSite, "max-per-site", config.MaxPerSite, "Pages per seed, following same-host links")
	cmd.Flags().IntVar(&config.MinWords, "min-words", config.MinWords, "Drop shorter sentences")
	return cmd
}
