package cleanup

import (
	"fmt"

	"github.com/instkit/instclean/pkg/devgraph"
	"github.com/kairos-io/kairos-sdk/utils"
	"github.com/rs/zerolog"
	"github.com/spectrocloud-labs/herd"
)

// State carries the configuration of a cleanup run and collects what the run
// did, so the report step can write it out at the end.
type State struct {
	Logger         zerolog.Logger
	LiveRequested  bool     // --liveinst, fallback live-install intent
	SysRoot        string   // host root holding /sys and /dev, "/" outside tests
	ReportPath     string   // where the run report lands
	ExtraProtected []string // extra never-unmount prefixes from the config file

	Graph  devgraph.Graph
	Runner func(string) (string, error) // host command runner, defaults to SH

	// Images is the disk-image registry, dm name to backing file. Filled by
	// the scan step, read by the settle and teardown steps.
	Images map[string]string

	mode      ExecutionMode
	unmounted []string
	tornDown  []string
}

func (s *State) run(cmd string) (string, error) {
	if s.Runner != nil {
		return s.Runner(cmd)
	}
	return utils.SH(cmd)
}

// WriteDAG returns the layered graph in printable form.
func (s *State) WriteDAG(g *herd.Graph) (out string) {
	for i, layer := range g.Analyze() {
		out += fmt.Sprintf("%d.\n", i+1)
		for _, op := range layer {
			if op.Error != nil {
				out += fmt.Sprintf(" <%s> (error: %s) (weak: %t) (run: %t)\n", op.Name, op.Error.Error(), op.WeakDeps, op.Executed)
			} else {
				out += fmt.Sprintf(" <%s> (weak: %t) (run: %t)\n", op.Name, op.WeakDeps, op.Executed)
			}
		}
	}
	return
}

// LogIfError will log if there is an error with the given context as message
// Context can be empty.
func (s *State) LogIfError(e error, msgContext string) {
	if e != nil {
		s.Logger.Err(e).Msg(msgContext)
	}
}

// LogIfErrorAndReturn will log if there is an error with the given context as message
// Context can be empty
// Will also return the error.
func (s *State) LogIfErrorAndReturn(e error, msgContext string) error {
	if e != nil {
		s.Logger.Err(e).Msg(msgContext)
	}
	return e
}
