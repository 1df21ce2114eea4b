package cleanup_test

import (
	"github.com/instkit/instclean/pkg/cleanup"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spectrocloud-labs/herd"
)

var _ = Describe("cleanup dag", func() {
	var g *herd.Graph

	BeforeEach(func() {
		g = herd.DAG()
		Expect(g).ToNot(BeNil())
	})

	It("registers the steps in dependency layers", func() {
		s := &cleanup.State{}

		err := s.Register(g)
		Expect(err).ToNot(HaveOccurred())

		dag := g.Analyze()

		Expect(len(dag)).To(Equal(5), s.WriteDAG(g))
		Expect(len(dag[0])).To(Equal(2), s.WriteDAG(g)) // mode and scan are order-independent
		Expect(len(dag[1])).To(Equal(1), s.WriteDAG(g))
		Expect(len(dag[2])).To(Equal(1), s.WriteDAG(g))
		Expect(len(dag[3])).To(Equal(1), s.WriteDAG(g))
		Expect(len(dag[4])).To(Equal(1), s.WriteDAG(g))

		Expect(dag[0][0].Name).To(Or(Equal("detect-mode"), Equal("scan-images")), s.WriteDAG(g))
		Expect(dag[0][1].Name).To(Or(Equal("detect-mode"), Equal("scan-images")), s.WriteDAG(g))
		Expect(dag[1][0].Name).To(Equal("unwind-mounts"), s.WriteDAG(g))
		Expect(dag[2][0].Name).To(Equal("settle-devices"), s.WriteDAG(g))
		Expect(dag[3][0].Name).To(Equal("teardown-images"), s.WriteDAG(g))
		Expect(dag[4][0].Name).To(Equal("write-report"), s.WriteDAG(g))
	})
})
