package segment

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rudmsa/frameacc/internal/accumulator"
)

var (
	ErrCycle       = errors.New("cluster would contain itself")
	ErrNotAMember  = errors.New("not a member of the cluster")
	ErrAlreadyHeld = errors.New("already a member of the cluster")
)

// Cluster is an ordered set of segments and sub-clusters.
type Cluster struct {
	id      string
	label   string
	reg     *Registry
	newAcc  func() accumulator.Accumulator
	members []Node
}

// NewCluster creates a cluster whose memberships are tracked by reg. newAcc
// returns the empty accumulator merged statistics start from.
func NewCluster(reg *Registry, label string, newAcc func() accumulator.Accumulator) *Cluster {
	return &Cluster{
		id:     uuid.NewString(),
		label:  label,
		reg:    reg,
		newAcc: newAcc,
	}
}

func (c *Cluster) ID() string    { return c.id }
func (c *Cluster) Label() string { return c.label }
func (c *Cluster) Len() int      { return len(c.members) }

func (c *Cluster) Members() []Node {
	return append([]Node(nil), c.members...)
}

func (c *Cluster) Add(n Node) error {
	if c.has(n) {
		return fmt.Errorf("%w: %s", ErrAlreadyHeld, n.ID())
	}
	if sub, ok := n.(*Cluster); ok && (sub == c || sub.contains(c)) {
		return fmt.Errorf("%w: %s", ErrCycle, sub.ID())
	}
	c.members = append(c.members, n)
	c.reg.AddOwner(n, c)
	return nil
}

func (c *Cluster) Remove(n Node) error {
	for i, m := range c.members {
		if m.ID() == n.ID() {
			c.members = append(c.members[:i], c.members[i+1:]...)
			c.reg.RemoveOwner(n, c)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotAMember, n.ID())
}

// Segments returns every segment reachable from c, each once, depth first.
func (c *Cluster) Segments() []*Segment {
	var out []*Segment
	seen := map[string]bool{}
	c.walk(func(s *Segment) {
		if !seen[s.ID()] {
			seen[s.ID()] = true
			out = append(out, s)
		}
	})
	return out
}

// Stats merges the statistics of every distinct segment reachable from c.
// A segment held through two paths is counted once.
func (c *Cluster) Stats() (accumulator.Accumulator, error) {
	acc := c.newAcc()
	for _, s := range c.Segments() {
		if err := acc.Merge(s.Accumulator()); err != nil {
			return nil, fmt.Errorf("merge segment %s into cluster %s: %w", s.ID(), c.id, err)
		}
	}
	return acc, nil
}

func (c *Cluster) has(n Node) bool {
	for _, m := range c.members {
		if m.ID() == n.ID() {
			return true
		}
	}
	return false
}

// contains reports whether target is reachable from c.
func (c *Cluster) contains(target *Cluster) bool {
	for _, m := range c.members {
		sub, ok := m.(*Cluster)
		if !ok {
			continue
		}
		if sub == target || sub.contains(target) {
			return true
		}
	}
	return false
}

func (c *Cluster) walk(fn func(*Segment)) {
	for _, m := range c.members {
		switch n := m.(type) {
		case *Segment:
			fn(n)
		case *Cluster:
			n.walk(fn)
		}
	}
}
