package segment

import "sync"

// Registry records which clusters hold each node. It holds no ownership: a
// node leaves the registry once no cluster refers to it.
type Registry struct {
	mu     sync.Mutex
	owners map[string][]*Cluster
}

func NewRegistry() *Registry {
	return &Registry{
		owners: make(map[string][]*Cluster),
	}
}

func (r *Registry) AddOwner(n Node, c *Cluster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[n.ID()] = append(r.owners[n.ID()], c)
}

func (r *Registry) RemoveOwner(n Node, c *Cluster) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owners := r.owners[n.ID()]
	for i, o := range owners {
		if o == c {
			owners = append(owners[:i], owners[i+1:]...)
			break
		}
	}
	if len(owners) == 0 {
		delete(r.owners, n.ID())
		return
	}
	r.owners[n.ID()] = owners
}

// Owners returns the clusters holding n, in the order they acquired it.
func (r *Registry) Owners(n Node) []*Cluster {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Cluster(nil), r.owners[n.ID()]...)
}

// RemoveAllOwners detaches n from every cluster holding it.
func (r *Registry) RemoveAllOwners(n Node) {
	for _, c := range r.Owners(n) {
		_ = c.Remove(n)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owners)
}
