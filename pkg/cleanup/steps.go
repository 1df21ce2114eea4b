package cleanup

import (
	"context"

	cnst "github.com/instkit/instclean/internal/constants"
	"github.com/instkit/instclean/pkg/imageset"
	"github.com/instkit/instclean/pkg/mounts"
	"github.com/spectrocloud-labs/herd"
)

// DetectModeDagStep adds the step that computes the execution mode.
func (s *State) DetectModeDagStep(g *herd.Graph) error {
	return g.Add(cnst.OpDetectMode, herd.WithCallback(
		func(_ context.Context) error {
			s.mode = s.DetectMode()
			s.Logger.Info().Str("mode", s.mode.String()).Msg("Detected execution mode")
			return nil
		},
	))
}

// ScanImagesDagStep adds the step that builds the disk-image registry.
// A scan failure aborts the whole run: an incomplete image map risks leaving
// storage attached.
func (s *State) ScanImagesDagStep(g *herd.Graph) error {
	return g.Add(cnst.OpScanImages, herd.WithCallback(
		func(_ context.Context) error {
			images, err := imageset.Scan(s.SysRoot)
			if err != nil {
				return err
			}
			s.Images = images
			s.Logger.Info().Int("images", len(images)).Msg("Scanned disk images")
			return nil
		},
	))
}

// UnwindMountsDagStep adds the step that unmounts what the mode selects, in
// reverse mount order. Needs the mode, so it runs after detection.
func (s *State) UnwindMountsDagStep(g *herd.Graph) error {
	return g.Add(cnst.OpUnwindMounts,
		herd.WithDeps(cnst.OpDetectMode),
		herd.WithCallback(
			func(_ context.Context) error {
				entries, err := mounts.LiveEntries()
				if err != nil {
					return err
				}
				s.UnwindMounts(s.mode, entries)
				return nil
			},
		))
}

// SettleDevicesDagStep adds the rescan+settle step between unmounting and the
// graph rebuild.
func (s *State) SettleDevicesDagStep(g *herd.Graph) error {
	return g.Add(cnst.OpSettleDevices,
		herd.WithDeps(cnst.OpUnwindMounts),
		herd.WithCallback(
			func(_ context.Context) error {
				s.SettleDevices()
				return nil
			},
		))
}

// TeardownImagesDagStep adds the dependency-ordered teardown. Needs the
// registry and a settled device tree.
func (s *State) TeardownImagesDagStep(g *herd.Graph) error {
	return g.Add(cnst.OpTeardownImages,
		herd.WithDeps(cnst.OpScanImages, cnst.OpSettleDevices),
		herd.WithCallback(
			func(_ context.Context) error {
				return s.TeardownImages()
			},
		))
}

// WriteReportDagStep adds the report write at the very end. Weak deps: the
// report is still worth writing when an earlier step failed.
func (s *State) WriteReportDagStep(g *herd.Graph) error {
	return g.Add(cnst.OpWriteReport,
		herd.WithWeakDeps(cnst.OpDetectMode, cnst.OpScanImages, cnst.OpUnwindMounts, cnst.OpSettleDevices, cnst.OpTeardownImages),
		herd.WithCallback(
			func(_ context.Context) error {
				err := s.WriteReport()
				// Best effort, the run outcome does not hinge on the report.
				s.LogIfError(err, "writing run report")
				return nil
			},
		))
}

// Register wires the whole cleanup run into the graph. Mode detection and the
// image scan are order-independent and land in the first layer, everything
// else runs strictly after its inputs exist.
func (s *State) Register(g *herd.Graph) error {
	var err error

	if err = s.LogIfErrorAndReturn(s.DetectModeDagStep(g), "detect mode step"); err != nil {
		return err
	}
	if err = s.LogIfErrorAndReturn(s.ScanImagesDagStep(g), "scan images step"); err != nil {
		return err
	}
	if err = s.LogIfErrorAndReturn(s.UnwindMountsDagStep(g), "unwind mounts step"); err != nil {
		return err
	}
	if err = s.LogIfErrorAndReturn(s.SettleDevicesDagStep(g), "settle devices step"); err != nil {
		return err
	}
	if err = s.LogIfErrorAndReturn(s.TeardownImagesDagStep(g), "teardown images step"); err != nil {
		return err
	}
	s.LogIfError(s.WriteReportDagStep(g), "write report step")

	return err
}
