package p4utils

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNetworkGraph(t *testing.T) {
	db, _ := startedChainNetwork(t)
	graph := NewNetworkGraph(db)

	t.Run("adjacency", func(t *testing.T) {
		if !graph.AreNeighbors("h1", "s1") {
			t.Fatal("h1 and s1 should be neighbors")
		}
		if !graph.AreNeighbors("s1", "s2") {
			t.Fatal("s1 and s2 should be neighbors")
		}
		if graph.AreNeighbors("h1", "h2") {
			t.Fatal("h1 and h2 should not be neighbors")
		}
		if graph.AreNeighbors("h1", "h9") {
			t.Fatal("unknown nodes are never neighbors")
		}
	})

	t.Run("neighbors are sorted", func(t *testing.T) {
		if diff := cmp.Diff([]string{"h1", "s2"}, graph.Neighbors("s1")); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("hosts and switches", func(t *testing.T) {
		if diff := cmp.Diff([]string{"h1", "h2"}, graph.Hosts()); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff([]string{"s1", "s2"}, graph.Switches()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("shortest paths", func(t *testing.T) {
		paths, err := graph.ShortestPaths("h1", "h2")
		if err != nil {
			t.Fatal(err)
		}
		expect := [][]string{{"h1", "s1", "s2", "h2"}}
		if diff := cmp.Diff(expect, paths); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("an unknown endpoint is a topology error", func(t *testing.T) {
		if _, err := graph.ShortestPaths("h1", "h9"); !errors.Is(err, ErrTopology) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("total path count covers ordered host pairs", func(t *testing.T) {
		if total := graph.TotalPathCount(); total != 2 {
			t.Fatal("unexpected total", total)
		}
	})

	t.Run("the switch subgraph drops the hosts", func(t *testing.T) {
		sub := graph.OnlySwitches()
		if len(sub.Hosts()) != 0 {
			t.Fatal("subgraph should not contain hosts")
		}
		if !sub.AreNeighbors("s1", "s2") {
			t.Fatal("s1 and s2 should still be neighbors")
		}
		if sub.AreNeighbors("h1", "s1") {
			t.Fatal("hosts should be gone")
		}
	})
}
