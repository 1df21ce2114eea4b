package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/instkit/instclean/internal/cmd"
	"github.com/instkit/instclean/internal/constants"
	"github.com/instkit/instclean/internal/utils"
	"github.com/instkit/instclean/internal/version"
	"github.com/instkit/instclean/pkg/cleanup"
	"github.com/instkit/instclean/pkg/devgraph"
	"github.com/rs/zerolog"
	"github.com/spectrocloud-labs/herd"
	"github.com/urfave/cli/v2"
)

// Detach everything the install session touched: unwind the mount table, then
// deactivate installer-created disk-image stacks leaf-first.
func main() {
	app := cli.NewApp()
	app.Name = "instclean"
	app.Usage = "leave the storage stack fully detached before the installer exits"
	app.Version = version.GetVersion()
	app.Action = func(c *cli.Context) error {
		utils.SetLogger()

		v := version.Get()
		utils.Log.Info().Str("commit", v.GitCommit).Str("compiled with", v.GoVersion).Str("version", v.Version).Msg("instclean")

		s := &cleanup.State{
			Logger:        utils.Log,
			LiveRequested: c.Bool("liveinst"),
			SysRoot:       utils.GetHostSysRoot(),
			ReportPath:    constants.ReportFile,
		}
		s.Graph = devgraph.New(s.SysRoot)

		if env, err := utils.ReadEnv(utils.GetHostConfigFile()); err == nil {
			if env["INSTCLEAN_DEBUG"] != "" {
				utils.Log = utils.Log.Level(zerolog.DebugLevel)
				s.Logger = utils.Log
			}
			s.ExtraProtected = utils.CleanupSlice(strings.Split(env["EXTRA_PROTECTED_PATHS"], " "))
		}

		g := herd.DAG()
		if err := s.Register(g); err != nil {
			return err
		}

		utils.Log.Info().Msg(s.WriteDAG(g))

		// Once we print the dag we can exit already
		if c.Bool("dry-run") {
			return nil
		}

		err := g.Run(context.Background())
		utils.Log.Debug().Msg(s.WriteDAG(g))
		return err
	}
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "liveinst",
			Usage: "treat this as a live-media install when no image devices are found",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "print the step graph without touching the host",
		},
	}
	app.Commands = cmd.Commands

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
