package cleanup_test

import (
	"os"
	"path/filepath"

	"github.com/instkit/instclean/pkg/cleanup"
	"github.com/instkit/instclean/tests/mocks"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("mode detector", func() {
	var sysfs *mocks.FakeSysfs
	var s *cleanup.State

	BeforeEach(func() {
		var err error
		sysfs, err = mocks.NewFakeSysfs()
		Expect(err).ToNot(HaveOccurred())

		cmdline := filepath.Join(sysfs.Root, "cmdline")
		Expect(os.WriteFile(cmdline, []byte("quiet\n"), os.ModePerm)).To(Succeed())
		Expect(os.Setenv("HOST_PROC_CMDLINE", cmdline)).To(Succeed())

		s = &cleanup.State{SysRoot: sysfs.Root}
	})
	AfterEach(func() {
		Expect(os.Unsetenv("HOST_PROC_CMDLINE")).To(Succeed())
		sysfs.Clean()
	})

	It("returns unknown with nothing to go on", func() {
		Expect(s.DetectMode()).To(Equal(cleanup.ModeUnknown))
	})

	It("detects an image install from a tagged dm device", func() {
		Expect(sysfs.AddDevice(mocks.FakeDevice{
			Name:   "dm-3",
			DMUUID: "ANACONDA-abcd",
			DMName: "liveimg",
		})).To(Succeed())
		Expect(s.DetectMode()).To(Equal(cleanup.ModeImageInstall))
	})

	It("prefers image install over every live marker", func() {
		Expect(sysfs.AddDevice(mocks.FakeDevice{
			Name:   "dm-3",
			DMUUID: "ANACONDA-abcd",
			DMName: "liveimg",
		})).To(Succeed())
		Expect(sysfs.AddLiveBase()).To(Succeed())
		s.LiveRequested = true

		Expect(s.DetectMode()).To(Equal(cleanup.ModeImageInstall))
	})

	It("detects a live install from the flag", func() {
		s.LiveRequested = true
		Expect(s.DetectMode()).To(Equal(cleanup.ModeLiveInstall))
	})

	It("detects a live install from the marker device", func() {
		Expect(sysfs.AddLiveBase()).To(Succeed())
		Expect(s.DetectMode()).To(Equal(cleanup.ModeLiveInstall))
	})

	It("detects a live install from the kernel cmdline", func() {
		cmdline := filepath.Join(sysfs.Root, "cmdline")
		Expect(os.WriteFile(cmdline, []byte("quiet rd.live.image\n"), os.ModePerm)).To(Succeed())
		Expect(s.DetectMode()).To(Equal(cleanup.ModeLiveInstall))
	})

	It("ignores untagged dm devices", func() {
		Expect(sysfs.AddDevice(mocks.FakeDevice{
			Name:   "dm-0",
			DMUUID: "CRYPT-LUKS2-aaaa",
			DMName: "luks-root",
		})).To(Succeed())
		Expect(s.DetectMode()).To(Equal(cleanup.ModeUnknown))
	})
})
