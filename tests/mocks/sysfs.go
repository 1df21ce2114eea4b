package mocks

import (
	"os"
	"path/filepath"
)

// FakeDevice describes one entry of the fake sysfs block tree.
type FakeDevice struct {
	Name        string
	Size        string
	DMUUID      string
	DMName      string
	NoDMName    bool // create the dm dir without a name attribute
	Slaves      []string
	BackingFile string   // content of loop/backing_file for loop devices
	Partitions  []string // child partition names, e.g. sda1
}

// FakeSysfs builds a host root with a /sys/block tree that both ghw (via
// chroot) and the sysfs readers can consume.
type FakeSysfs struct {
	Root string
}

func NewFakeSysfs() (*FakeSysfs, error) {
	root, err := os.MkdirTemp("", "instclean-sysfs")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(root, "sys/block"), os.ModePerm); err != nil {
		return nil, err
	}
	return &FakeSysfs{Root: root}, nil
}

func (f *FakeSysfs) AddDevice(d FakeDevice) error {
	devDir := filepath.Join(f.Root, "sys/block", d.Name)
	if err := os.MkdirAll(devDir, os.ModePerm); err != nil {
		return err
	}
	size := d.Size
	if size == "" {
		size = "2097152"
	}
	if err := os.WriteFile(filepath.Join(devDir, "size"), []byte(size+"\n"), os.ModePerm); err != nil {
		return err
	}
	if d.DMUUID != "" || d.DMName != "" || d.NoDMName {
		if err := os.MkdirAll(filepath.Join(devDir, "dm"), os.ModePerm); err != nil {
			return err
		}
		if d.DMUUID != "" {
			if err := os.WriteFile(filepath.Join(devDir, "dm/uuid"), []byte(d.DMUUID+"\n"), os.ModePerm); err != nil {
				return err
			}
		}
		if !d.NoDMName {
			if err := os.WriteFile(filepath.Join(devDir, "dm/name"), []byte(d.DMName+"\n"), os.ModePerm); err != nil {
				return err
			}
		}
	}
	if d.Slaves != nil {
		if err := os.MkdirAll(filepath.Join(devDir, "slaves"), os.ModePerm); err != nil {
			return err
		}
		for _, s := range d.Slaves {
			if err := os.MkdirAll(filepath.Join(devDir, "slaves", s), os.ModePerm); err != nil {
				return err
			}
		}
	}
	if d.BackingFile != "" {
		if err := os.MkdirAll(filepath.Join(devDir, "loop"), os.ModePerm); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(devDir, "loop/backing_file"), []byte(d.BackingFile+"\n"), os.ModePerm); err != nil {
			return err
		}
	}
	for _, p := range d.Partitions {
		partDir := filepath.Join(devDir, p)
		if err := os.MkdirAll(partDir, os.ModePerm); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(partDir, "partition"), []byte("1\n"), os.ModePerm); err != nil {
			return err
		}
	}
	return nil
}

// AddLiveBase drops the live-media marker device under the fake root.
func (f *FakeSysfs) AddLiveBase() error {
	if err := os.MkdirAll(filepath.Join(f.Root, "dev/mapper"), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(f.Root, "dev/mapper/live-base"), []byte{}, os.ModePerm)
}

func (f *FakeSysfs) Clean() {
	_ = os.RemoveAll(f.Root)
}
