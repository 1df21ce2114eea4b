package devgraph

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	internalUtils "github.com/instkit/instclean/internal/utils"
	"github.com/kairos-io/kairos-sdk/utils"
)

// Node is a single device in the graph. The cleanup core only ever queries
// and commands nodes, it never rewires the graph itself.
type Node interface {
	Name() string
	DependsOn(other Node) bool
	Teardown(recursive bool) error
	Deactivate(recursive bool) error
}

// Graph is the device-graph collaborator consumed by the teardown engine.
type Graph interface {
	Populate(cleanupOnly bool) error
	GetDeviceByName(name string) Node
	Leaves() []Node
}

const (
	TriggerCmd = "udevadm trigger --subsystem-match=block"
	SettleCmd  = "udevadm settle"
)

type nodeKind int

const (
	kindDisk nodeKind = iota
	kindPartition
	kindDM
	kindLoop
)

// SysfsGraph builds the device dependency graph from the sysfs block tree.
// Each device's "slaves" listing gives the devices it is built on, which also
// yields the reverse (holder) edges. Deactivation shells out to dmsetup and
// losetup.
type SysfsGraph struct {
	Root   string
	Runner func(string) (string, error)

	nodes  map[string]*sysfsNode
	byName map[string]*sysfsNode
}

func New(root string) *SysfsGraph {
	return &SysfsGraph{
		Root:   root,
		Runner: utils.SH,
	}
}

// Populate scans the sysfs block tree and rebuilds the graph from the devices
// that currently exist. With cleanupOnly unset it first asks the kernel to
// re-announce block devices and waits for the queue to drain; cleanup-only
// population takes the tree exactly as it is.
func (g *SysfsGraph) Populate(cleanupOnly bool) error {
	if !cleanupOnly {
		if _, err := g.Runner(TriggerCmd); err != nil {
			return err
		}
		if _, err := g.Runner(SettleCmd); err != nil {
			return err
		}
	}

	g.nodes = map[string]*sysfsNode{}
	g.byName = map[string]*sysfsNode{}

	blockDir := filepath.Join(g.Root, "sys/block")
	devices, err := os.ReadDir(blockDir)
	if err != nil {
		return fmt.Errorf("reading block device tree: %w", err)
	}

	for _, dev := range devices {
		node := g.ensure(dev.Name())

		if node.kind == kindDM {
			// The mapper name is how callers look this device up.
			if dmName, err := os.ReadFile(filepath.Join(blockDir, dev.Name(), "dm/name")); err == nil {
				node.dmName = strings.TrimSpace(string(dmName))
				if node.dmName != "" {
					g.byName[node.dmName] = node
				}
			}
		}

		slaves, err := os.ReadDir(filepath.Join(blockDir, dev.Name(), "slaves"))
		if err == nil {
			for _, s := range slaves {
				slave := g.ensure(s.Name())
				node.slaves = append(node.slaves, slave)
				slave.holders = append(slave.holders, node)
			}
		}

		// Partitions are nested under their disk and depend on it.
		children, err := os.ReadDir(filepath.Join(blockDir, dev.Name()))
		if err != nil {
			continue
		}
		for _, c := range children {
			if !c.IsDir() {
				continue
			}
			if _, err := os.Stat(filepath.Join(blockDir, dev.Name(), c.Name(), "partition")); err != nil {
				continue
			}
			part := g.ensure(c.Name())
			part.kind = kindPartition
			part.slaves = append(part.slaves, node)
			node.holders = append(node.holders, part)
		}
	}
	internalUtils.Log.Debug().Int("devices", len(g.nodes)).Msg("Populated device graph")
	return nil
}

// GetDeviceByName resolves a node by mapper name or kernel name. Returns nil
// when the device no longer exists.
func (g *SysfsGraph) GetDeviceByName(name string) Node {
	if n, ok := g.byName[name]; ok {
		return n
	}
	if n, ok := g.nodes[name]; ok {
		return n
	}
	return nil
}

// Leaves returns the devices nothing currently depends on, sorted by name.
func (g *SysfsGraph) Leaves() []Node {
	var leaves []Node
	for _, n := range g.nodes {
		if len(n.holders) == 0 {
			leaves = append(leaves, n)
		}
	}
	sort.Slice(leaves, func(i, j int) bool {
		return leaves[i].Name() < leaves[j].Name()
	})
	return leaves
}

func (g *SysfsGraph) ensure(name string) *sysfsNode {
	if n, ok := g.nodes[name]; ok {
		return n
	}
	n := &sysfsNode{name: name, graph: g, active: true}
	switch {
	case strings.HasPrefix(name, "dm-"):
		n.kind = kindDM
	case strings.HasPrefix(name, "loop"):
		n.kind = kindLoop
	default:
		n.kind = kindDisk
	}
	g.nodes[name] = n
	return n
}

type sysfsNode struct {
	name    string
	dmName  string
	kind    nodeKind
	active  bool
	slaves  []*sysfsNode
	holders []*sysfsNode
	graph   *SysfsGraph
}

func (n *sysfsNode) Name() string {
	return n.name
}

// DependsOn reports whether n is built, directly or transitively, on other.
func (n *sysfsNode) DependsOn(other Node) bool {
	for _, s := range n.slaves {
		if s.name == other.Name() {
			return true
		}
		if s.DependsOn(other) {
			return true
		}
	}
	return false
}

// Teardown detaches this device and, when recursive, every backing device
// that is left with no active holder.
func (n *sysfsNode) Teardown(recursive bool) error {
	if err := n.detach(); err != nil {
		return err
	}
	if !recursive {
		return nil
	}
	var allErrors error
	for _, s := range n.slaves {
		if s.held() {
			continue
		}
		if err := s.Teardown(true); err != nil {
			allErrors = multierror.Append(allErrors, err)
		}
	}
	return allErrors
}

// Deactivate is the same traversal as Teardown. The engine calls Teardown on
// dependent leaves and Deactivate on the registered target, the split mirrors
// those two intents.
func (n *sysfsNode) Deactivate(recursive bool) error {
	return n.Teardown(recursive)
}

func (n *sysfsNode) detach() error {
	if !n.active {
		return nil
	}
	var err error
	switch n.kind {
	case kindDM:
		name := n.dmName
		if name == "" {
			name = n.name
		}
		_, err = n.graph.Runner(fmt.Sprintf("dmsetup remove %s", name))
	case kindLoop:
		_, err = n.graph.Runner(fmt.Sprintf("losetup -d /dev/%s", n.name))
	default:
		// Disks and partitions have nothing to deactivate.
	}
	if err != nil {
		internalUtils.Log.Err(err).Str("device", n.name).Msg("Detaching device")
		return err
	}
	n.active = false
	return nil
}

func (n *sysfsNode) held() bool {
	for _, h := range n.holders {
		if h.active {
			return true
		}
	}
	return false
}
