package cleanup

import (
	"os"
	"path/filepath"

	"github.com/instkit/instclean/internal/constants"
	internalUtils "github.com/instkit/instclean/internal/utils"
	"github.com/instkit/instclean/pkg/imageset"
)

// ExecutionMode says what kind of install session we are cleaning up after.
type ExecutionMode int

const (
	ModeUnknown ExecutionMode = iota
	ModeLiveInstall
	ModeImageInstall
)

func (m ExecutionMode) String() string {
	switch m {
	case ModeLiveInstall:
		return "live-install"
	case ModeImageInstall:
		return "image-install"
	default:
		return "unknown"
	}
}

// DetectMode computes the execution mode once, for the unwinder to consume.
// An installer-tagged device-mapper device always wins over the live markers:
// the live unmount rule is broader and would unmount things an image install
// still needs.
func (s *State) DetectMode() ExecutionMode {
	if imageset.HasTaggedDevices(s.SysRoot) {
		return ModeImageInstall
	}
	if s.LiveRequested || s.liveMarkerPresent() || s.liveStanzaPresent() {
		return ModeLiveInstall
	}
	return ModeUnknown
}

func (s *State) liveMarkerPresent() bool {
	_, err := os.Stat(filepath.Join(s.SysRoot, constants.LiveBaseDevice))
	return err == nil
}

func (s *State) liveStanzaPresent() bool {
	return len(internalUtils.ReadCMDLineArg(constants.LiveCmdlineStanza)) > 0
}
