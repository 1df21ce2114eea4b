package cleanup

import (
	"fmt"
	"strings"

	"github.com/instkit/instclean/internal/constants"
	"github.com/instkit/instclean/pkg/mounts"
)

// UnwindMounts walks the mount table in strict reverse-of-mount order and
// unmounts the entries the given mode selects. Reverse order matters: a child
// mount still live under a parent would make the parent umount report busy.
func (s *State) UnwindMounts(mode ExecutionMode, entries []mounts.Entry) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if s.protected(e.Mountpoint) {
			s.Logger.Debug().Str("mountpoint", e.Mountpoint).Msg("Protected mountpoint, skipping")
			continue
		}
		if installOwned(e.Mountpoint) || (mode == ModeLiveInstall && liveOwned(e)) {
			s.unmount(e.Mountpoint)
		}
	}
}

func (s *State) protected(mountpoint string) bool {
	if mountpoint == constants.RootfsBase {
		return true
	}
	for _, p := range append(constants.ProtectedPrefixes(), s.ExtraProtected...) {
		if strings.HasPrefix(mountpoint, p) {
			return true
		}
	}
	return false
}

func installOwned(mountpoint string) bool {
	for _, p := range constants.InstallPrefixes() {
		if strings.HasPrefix(mountpoint, p) {
			return true
		}
	}
	return false
}

// liveOwned matches media and device-backed mounts created while running off
// live media, except the live medium's own mount which has to survive us.
func liveOwned(e mounts.Entry) bool {
	if strings.Contains(e.Device, constants.LiveMarker) {
		return false
	}
	return strings.Contains(e.Mountpoint, constants.MediaMarker) ||
		strings.HasPrefix(e.Device, constants.DevPrefix)
}

func (s *State) unmount(target string) {
	// The exit status is deliberately not acted on: the target may already be
	// unmounted, or busy for reasons outside our control.
	out, err := s.run(fmt.Sprintf("umount %s", target))
	if err != nil {
		s.Logger.Debug().Err(err).Str("target", target).Str("output", out).Msg("umount")
	}
	s.unmounted = append(s.unmounted, target)
}
