package cli

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/happyhackingspace/openie"
	"github.com/happyhackingspace/openie/internal/server"
	"github.com/spf13/cobra"
)

func (c *CLI) newServeCommand() *cobra.Command {
	var modelPath, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve tagging and extraction over HTTP",
		Example: `  openie serve --model model.json.gz --addr 127.0.0.1:8080
  curl -d '{"tagged":["Obama/NNP/B-NP was/VBD/B-VP born/VBN/I-VP in/IN/B-PP Hawaii/NNP/B-NP"]}' localhost:8080/api/extract`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModel(modelPath)
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(m, openie.DefaultLabelRoles()).Serve(ctx, ln)
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "Path to model file (default: auto-detect)")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	return cmd
}
