package cli

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/lucasnoah/axpipe/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve pipeline state as a read-only JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		p, cleanup, err := openProject(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		srv := web.NewServer(web.Deps{
			Registry:    p.registry,
			Progress:    p.store,
			Validator:   p.validator,
			Checkpoints: p.checkpoints,
			Context:     p.tracker,
			Journal:     p.journal,
			Version:     version,
		}, addr)
		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8420", "Listen address")
}
