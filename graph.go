package p4utils

//
// Graph queries over a topology snapshot
//

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// NetworkGraph answers adjacency and path questions about a saved
// [TopologyDB]. The zero value is invalid; construct using
// [NewNetworkGraph].
type NetworkGraph struct {
	// db is the snapshot the graph was built from.
	db *TopologyDB

	// g is the weighted undirected graph representation.
	g *simple.WeightedUndirectedGraph

	// ids maps node names to graph IDs.
	ids map[string]int64

	// names maps graph IDs back to node names.
	names map[int64]string
}

// NewNetworkGraph builds a [NetworkGraph] from a snapshot. Each link
// becomes an undirected edge weighted by the link's routing weight.
func NewNetworkGraph(db *TopologyDB) *NetworkGraph {
	ng := &NetworkGraph{
		db:    db,
		g:     simple.NewWeightedUndirectedGraph(0, math.Inf(1)),
		ids:   map[string]int64{},
		names: map[int64]string{},
	}

	// assign IDs in sorted-name order so that the graph is
	// reproducible across runs
	names := make([]string, 0, len(db.Nodes))
	for name := range db.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	for idx, name := range names {
		id := int64(idx)
		ng.ids[name] = id
		ng.names[id] = name
		ng.g.AddNode(simple.Node(id))
	}

	for _, name := range names {
		for neighbor, entry := range db.Nodes[name].Neighbors {
			nid, ok := ng.ids[neighbor]
			if !ok || nid <= ng.ids[name] {
				continue
			}
			ng.g.SetWeightedEdge(simple.WeightedEdge{
				F: simple.Node(ng.ids[name]),
				T: simple.Node(nid),
				W: float64(entry.Weight),
			})
		}
	}
	return ng
}

// AreNeighbors tells whether two nodes are directly connected.
func (ng *NetworkGraph) AreNeighbors(node1, node2 string) bool {
	id1, ok1 := ng.ids[node1]
	id2, ok2 := ng.ids[node2]
	return ok1 && ok2 && ng.g.HasEdgeBetween(id1, id2)
}

// Neighbors returns the direct neighbors of a node in sorted order.
func (ng *NetworkGraph) Neighbors(node string) []string {
	id, ok := ng.ids[node]
	if !ok {
		return nil
	}
	var neighbors []string
	iter := ng.g.From(id)
	for iter.Next() {
		neighbors = append(neighbors, ng.names[iter.Node().ID()])
	}
	sort.Strings(neighbors)
	return neighbors
}

// Hosts returns the snapshot's hosts in sorted order.
func (ng *NetworkGraph) Hosts() []string {
	return ng.nodesOfType("host")
}

// Switches returns the snapshot's switches in sorted order.
func (ng *NetworkGraph) Switches() []string {
	return ng.nodesOfType("switch")
}

// nodesOfType returns the nodes of the given type in sorted order.
func (ng *NetworkGraph) nodesOfType(kind string) []string {
	var nodes []string
	for name, record := range ng.db.Nodes {
		if record.Type == kind {
			nodes = append(nodes, name)
		}
	}
	sort.Strings(nodes)
	return nodes
}

// ShortestPaths returns every minimum-weight path between two nodes,
// as sequences of node names from node1 to node2 inclusive.
func (ng *NetworkGraph) ShortestPaths(node1, node2 string) ([][]string, error) {
	id1, ok1 := ng.ids[node1]
	id2, ok2 := ng.ids[node2]
	if !ok1 {
		return nil, fmt.Errorf("%w: no node named %s in the network", ErrTopology, node1)
	}
	if !ok2 {
		return nil, fmt.Errorf("%w: no node named %s in the network", ErrTopology, node2)
	}

	all := path.DijkstraAllPaths(ng.g)
	paths, _ := all.AllBetween(id1, id2)
	result := make([][]string, 0, len(paths))
	for _, p := range paths {
		result = append(result, ng.pathNames(p))
	}
	return result, nil
}

// TotalPathCount returns the number of shortest paths over all ordered
// host pairs.
func (ng *NetworkGraph) TotalPathCount() int {
	all := path.DijkstraAllPaths(ng.g)
	hosts := ng.Hosts()
	total := 0
	for _, src := range hosts {
		for _, dst := range hosts {
			if src == dst {
				continue
			}
			paths, _ := all.AllBetween(ng.ids[src], ng.ids[dst])
			total += len(paths)
		}
	}
	return total
}

// OnlySwitches returns a graph containing only the switches and the
// links between them.
func (ng *NetworkGraph) OnlySwitches() *NetworkGraph {
	sub := &TopologyDB{Nodes: map[string]*NodeRecord{}}
	for name, record := range ng.db.Nodes {
		if record.Type != "switch" {
			continue
		}
		trimmed := &NodeRecord{
			Type:             record.Type,
			Neighbors:        map[string]*IfaceRecord{},
			InterfacesToNode: map[string]string{},
			InterfacesToPort: map[string]int{},
		}
		for neighbor, entry := range record.Neighbors {
			if other := ng.db.Nodes[neighbor]; other != nil && other.Type == "switch" {
				trimmed.Neighbors[neighbor] = entry
				trimmed.InterfacesToNode[entry.Intf] = neighbor
				trimmed.InterfacesToPort[entry.Intf] = record.InterfacesToPort[entry.Intf]
			}
		}
		sub.Nodes[name] = trimmed
	}
	return NewNetworkGraph(sub)
}

// pathNames converts a graph path to node names.
func (ng *NetworkGraph) pathNames(nodes []graph.Node) []string {
	names := make([]string, 0, len(nodes))
	for _, node := range nodes {
		names = append(names, ng.names[node.ID()])
	}
	return names
}
