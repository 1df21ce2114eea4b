package devgraph_test

import (
	"fmt"

	"github.com/instkit/instclean/pkg/devgraph"
	"github.com/instkit/instclean/tests/mocks"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("sysfs device graph", func() {
	var sysfs *mocks.FakeSysfs
	var graph *devgraph.SysfsGraph
	var commands []string

	BeforeEach(func() {
		var err error
		sysfs, err = mocks.NewFakeSysfs()
		Expect(err).ToNot(HaveOccurred())

		commands = nil
		graph = devgraph.New(sysfs.Root)
		graph.Runner = func(cmd string) (string, error) {
			commands = append(commands, cmd)
			return "", nil
		}
	})
	AfterEach(func() {
		sysfs.Clean()
	})

	// Stack used in most tests: dm-9 sits on dm-3 (mapper name liveimg),
	// which sits on loop0. A plain disk with one partition sits beside it.
	addStack := func() {
		Expect(sysfs.AddDevice(mocks.FakeDevice{Name: "sda", Partitions: []string{"sda1"}})).To(Succeed())
		Expect(sysfs.AddDevice(mocks.FakeDevice{Name: "loop0", BackingFile: "/var/tmp/live.img"})).To(Succeed())
		Expect(sysfs.AddDevice(mocks.FakeDevice{Name: "dm-3", DMUUID: "ANACONDA-abcd", DMName: "liveimg", Slaves: []string{"loop0"}})).To(Succeed())
		Expect(sysfs.AddDevice(mocks.FakeDevice{Name: "dm-9", DMUUID: "ANACONDA-ef01", DMName: "overlay", Slaves: []string{"dm-3"}})).To(Succeed())
	}

	Context("Populate", func() {
		It("builds the graph in cleanup-only mode without rescanning", func() {
			addStack()
			Expect(graph.Populate(true)).To(Succeed())
			Expect(commands).To(BeEmpty())
		})

		It("triggers a rescan on a full populate", func() {
			addStack()
			Expect(graph.Populate(false)).To(Succeed())
			Expect(commands).To(Equal([]string{devgraph.TriggerCmd, devgraph.SettleCmd}))
		})

		It("fails when the block tree is unreadable", func() {
			graph = devgraph.New("/nonexistent")
			Expect(graph.Populate(true)).ToNot(Succeed())
		})
	})

	Context("lookups", func() {
		BeforeEach(func() {
			addStack()
			Expect(graph.Populate(true)).To(Succeed())
		})

		It("resolves devices by mapper name and by kernel name", func() {
			Expect(graph.GetDeviceByName("liveimg")).ToNot(BeNil())
			Expect(graph.GetDeviceByName("liveimg").Name()).To(Equal("dm-3"))
			Expect(graph.GetDeviceByName("dm-9").Name()).To(Equal("dm-9"))
			Expect(graph.GetDeviceByName("gone")).To(BeNil())
		})

		It("returns the devices nothing depends on as leaves", func() {
			var names []string
			for _, l := range graph.Leaves() {
				names = append(names, l.Name())
			}
			Expect(names).To(Equal([]string{"dm-9", "sda1"}))
		})

		It("sees transitive dependencies", func() {
			target := graph.GetDeviceByName("liveimg")
			leaf := graph.GetDeviceByName("dm-9")
			loop := graph.GetDeviceByName("loop0")

			Expect(leaf.DependsOn(target)).To(BeTrue())
			Expect(leaf.DependsOn(loop)).To(BeTrue())
			Expect(target.DependsOn(leaf)).To(BeFalse())
		})
	})

	Context("Teardown", func() {
		BeforeEach(func() {
			addStack()
			Expect(graph.Populate(true)).To(Succeed())
		})

		It("detaches the whole stack top-down", func() {
			leaf := graph.GetDeviceByName("dm-9")
			Expect(leaf.Teardown(true)).To(Succeed())
			Expect(commands).To(Equal([]string{
				"dmsetup remove overlay",
				"dmsetup remove liveimg",
				"losetup -d /dev/loop0",
			}))
		})

		It("does not touch backing devices without recursion", func() {
			leaf := graph.GetDeviceByName("dm-9")
			Expect(leaf.Teardown(false)).To(Succeed())
			Expect(commands).To(Equal([]string{"dmsetup remove overlay"}))
		})

		It("deactivating an already detached device is a no-op", func() {
			leaf := graph.GetDeviceByName("dm-9")
			Expect(leaf.Teardown(true)).To(Succeed())
			issued := len(commands)

			target := graph.GetDeviceByName("liveimg")
			Expect(target.Deactivate(true)).To(Succeed())
			Expect(commands).To(HaveLen(issued))
		})

		It("leaves a backing device alone while another holder is active", func() {
			Expect(sysfs.AddDevice(mocks.FakeDevice{Name: "dm-11", DMUUID: "ANACONDA-2222", DMName: "scratch", Slaves: []string{"loop0"}})).To(Succeed())
			Expect(graph.Populate(true)).To(Succeed())

			leaf := graph.GetDeviceByName("dm-9")
			Expect(leaf.Teardown(true)).To(Succeed())
			Expect(commands).To(Equal([]string{
				"dmsetup remove overlay",
				"dmsetup remove liveimg",
			}))
		})

		It("propagates a failing detach", func() {
			graph.Runner = func(cmd string) (string, error) {
				return "", fmt.Errorf("device busy")
			}
			leaf := graph.GetDeviceByName("dm-9")
			Expect(leaf.Teardown(true)).ToNot(Succeed())
		})
	})
})
