package cmd

import (
	"fmt"

	"github.com/instkit/instclean/internal/constants"
	"github.com/instkit/instclean/internal/utils"
	"github.com/instkit/instclean/internal/version"
	"github.com/instkit/instclean/pkg/cleanup"
	"github.com/urfave/cli/v2"
)

var Commands = []*cli.Command{
	{
		Name:  "version",
		Usage: "version",
		Action: func(c *cli.Context) error {
			utils.SetLogger()
			v := version.Get()
			utils.Log.Info().Str("commit", v.GitCommit).Str("compiled with", v.GoVersion).Str("version", v.Version).Msg("instclean")
			return nil
		},
	},
	{
		Name:  "report",
		Usage: "print the report left by the last run",
		Action: func(c *cli.Context) error {
			r, err := cleanup.ReadReport(constants.ReportFile)
			if err != nil {
				return err
			}
			fmt.Printf("mode: %s\n", r.Mode)
			for _, m := range r.Unmounted {
				fmt.Printf("unmounted: %s\n", m)
			}
			for name, backing := range r.Images {
				fmt.Printf("image: %s (%s)\n", name, backing)
			}
			for _, d := range r.TornDown {
				fmt.Printf("torn down: %s\n", d)
			}
			return nil
		},
	},
}
