package cleanup

import (
	"github.com/instkit/instclean/pkg/devgraph"
)

// SettleDevices asks the kernel to re-announce block devices and waits for the
// event queue to drain, so the graph rebuild sees post-unmount reality.
// Best effort: a failed trigger just means we work from a staler tree.
func (s *State) SettleDevices() {
	if len(s.Images) == 0 {
		return
	}
	if out, err := s.run(devgraph.TriggerCmd); err != nil {
		s.Logger.Warn().Err(err).Str("output", out).Msg("udevadm trigger")
	}
	if out, err := s.run(devgraph.SettleCmd); err != nil {
		s.Logger.Warn().Err(err).Str("output", out).Msg("udevadm settle")
	}
}

// TeardownImages fully detaches every registered disk-image device and
// everything depending on it, leaf-first. A device never gets deactivated
// while one of its dependents is still active: every leaf that transitively
// depends on the target is torn down before the target itself.
//
// Any failure from the graph is fatal for the run. Continuing with partial
// knowledge of the storage state is worse than stopping.
func (s *State) TeardownImages() error {
	if len(s.Images) == 0 {
		s.Logger.Debug().Msg("No disk images registered, nothing to tear down")
		return nil
	}

	if err := s.Graph.Populate(true); err != nil {
		return err
	}

	for name := range s.Images {
		node := s.Graph.GetDeviceByName(name)
		if node == nil {
			s.Logger.Debug().Str("name", name).Msg("Image device already gone")
			continue
		}
		for _, leaf := range s.Graph.Leaves() {
			if !leaf.DependsOn(node) {
				continue
			}
			s.Logger.Debug().Str("leaf", leaf.Name()).Str("target", name).Msg("Tearing down dependent leaf")
			if err := leaf.Teardown(true); err != nil {
				return err
			}
		}
		if err := node.Deactivate(true); err != nil {
			return err
		}
		s.tornDown = append(s.tornDown, name)
		s.Logger.Info().Str("name", name).Str("backing", s.Images[name]).Msg("Deactivated disk image")
	}
	return nil
}
