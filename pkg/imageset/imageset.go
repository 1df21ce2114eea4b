package imageset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/instkit/instclean/internal/constants"
	internalUtils "github.com/instkit/instclean/internal/utils"
	"github.com/jaypipes/ghw"
)

// DiskImage identifies an installer-created device-mapper device and the
// image file it is backed by.
type DiskImage struct {
	Name        string
	BackingFile string
}

// MissingAttributeError is returned when a sysfs attribute we expect on a
// device-mapper or loop device cannot be read. The registry treats it as
// fatal: an incomplete image map means we could leave storage attached.
type MissingAttributeError struct {
	Device    string
	Attribute string
	Err       error
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("reading %s of %s: %v", e.Attribute, e.Device, e.Err)
}

func (e *MissingAttributeError) Unwrap() error {
	return e.Err
}

// Scan enumerates block devices under root and returns a mapping from dm name
// to backing image file for every device-mapper device tagged by the installer.
func Scan(root string) (map[string]string, error) {
	blk, err := ghw.Block(ghw.WithChroot(root))
	if err != nil {
		return nil, err
	}

	images := map[string]string{}
	for _, disk := range blk.Disks {
		if !strings.HasPrefix(disk.Name, "dm-") {
			continue
		}
		uuid, err := readAttr(root, disk.Name, "dm/uuid")
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(uuid, constants.InstallerTag) {
			continue
		}
		name, err := readAttr(root, disk.Name, "dm/name")
		if err != nil {
			return nil, err
		}
		if name == "" {
			continue
		}

		slaves, err := listSlaves(root, disk.Name)
		if err != nil {
			return nil, err
		}
		if len(slaves) == 0 {
			return nil, fmt.Errorf("%w: %s", constants.ErrNoBackingDevice, disk.Name)
		}
		// Installer images sit on a single loop device. Take the first
		// listed slave, anything beyond that is out of contract.
		backing, err := ResolveBackingFile(root, slaves[0])
		if err != nil {
			return nil, err
		}
		internalUtils.Log.Debug().Str("device", disk.Name).Str("name", name).Str("backing", backing).Msg("Registered disk image")
		images[name] = backing
	}
	return images, nil
}

// HasTaggedDevices reports whether any installer-tagged device-mapper device
// exists. Unlike Scan it is lenient: unreadable attributes just don't match.
func HasTaggedDevices(root string) bool {
	blk, err := ghw.Block(ghw.WithChroot(root))
	if err != nil {
		return false
	}
	for _, disk := range blk.Disks {
		if !strings.HasPrefix(disk.Name, "dm-") {
			continue
		}
		uuid, err := readAttr(root, disk.Name, "dm/uuid")
		if err != nil {
			continue
		}
		if strings.HasPrefix(uuid, constants.InstallerTag) {
			return true
		}
	}
	return false
}

// ResolveBackingFile returns the file a loop device exposes as block storage.
func ResolveBackingFile(root, dev string) (string, error) {
	return readAttr(root, dev, "loop/backing_file")
}

func readAttr(root, dev, attr string) (string, error) {
	content, err := os.ReadFile(filepath.Join(root, "sys/block", dev, attr))
	if err != nil {
		return "", &MissingAttributeError{Device: dev, Attribute: attr, Err: err}
	}
	return strings.TrimSpace(string(content)), nil
}

func listSlaves(root, dev string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, "sys/block", dev, "slaves"))
	if err != nil {
		return nil, &MissingAttributeError{Device: dev, Attribute: "slaves", Err: err}
	}
	slaves := make([]string, 0, len(entries))
	for _, e := range entries {
		slaves = append(slaves, e.Name())
	}
	return slaves, nil
}
