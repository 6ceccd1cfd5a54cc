package p4utils

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// simpleTopologyConfig returns a two-host single-switch topology.
func simpleTopologyConfig() *TopologyConfig {
	return &TopologyConfig{
		Hosts: []string{"h1", "h2"},
		Switches: map[string]*SwitchConfig{
			"s1": {Program: "l2fwd.p4"},
		},
		Links: []LinkSpec{
			{"h1", "s1"},
			{"h2", "s1"},
		},
	}
}

func TestNewTopology(t *testing.T) {
	t.Run("a valid topology builds", func(t *testing.T) {
		topo, err := NewTopology(simpleTopologyConfig())
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"h1", "h2"}, topo.Hosts()); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff([]string{"s1"}, topo.Switches()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("a nil topology section is a configuration error", func(t *testing.T) {
		_, err := NewTopology(nil)
		if !errors.Is(err, ErrConfiguration) {
			t.Fatal("not the error we expected", err)
		}
		if !strings.Contains(err.Error(), "topology") {
			t.Fatal("error does not name the missing section:", err)
		}
	})

	t.Run("a link referencing an undeclared node fails fast", func(t *testing.T) {
		config := simpleTopologyConfig()
		config.Links = append(config.Links, LinkSpec{"h3", "s1"})
		_, err := NewTopology(config)
		if !errors.Is(err, ErrTopology) {
			t.Fatal("not the error we expected", err)
		}
		if !strings.Contains(err.Error(), "h3") {
			t.Fatal("error does not name the dangling node:", err)
		}
	})

	t.Run("duplicate identifiers are rejected", func(t *testing.T) {
		config := simpleTopologyConfig()
		config.Hosts = append(config.Hosts, "h1")
		_, err := NewTopology(config)
		if !errors.Is(err, ErrConfiguration) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("host identifiers must carry the host prefix", func(t *testing.T) {
		config := simpleTopologyConfig()
		config.Hosts = append(config.Hosts, "x1")
		_, err := NewTopology(config)
		if !errors.Is(err, ErrConfiguration) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("a host-to-host link is rejected", func(t *testing.T) {
		config := simpleTopologyConfig()
		config.Links = append(config.Links, LinkSpec{"h1", "h2"})
		_, err := NewTopology(config)
		if !errors.Is(err, ErrConfiguration) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("mutating the config does not reach the built topology", func(t *testing.T) {
		config := simpleTopologyConfig()
		properties := config.Switches["s1"]
		topo := Must1(NewTopology(config))

		delete(config.Switches, "s1")
		properties.Program = ""

		if topo.SwitchConfig("s1") == nil {
			t.Fatal("s1 disappeared from the topology")
		}
		if !topo.IsP4Switch("s1") {
			t.Fatal("s1 lost its program")
		}
	})
}

func TestTopologySwitchOf(t *testing.T) {
	t.Run("a single-homed host resolves to its switch", func(t *testing.T) {
		topo := Must1(NewTopology(simpleTopologyConfig()))
		attached, err := topo.SwitchOf("h1")
		if err != nil {
			t.Fatal(err)
		}
		if attached != "s1" {
			t.Fatal("unexpected switch", attached)
		}
	})

	t.Run("a multihomed host is a topology error", func(t *testing.T) {
		config := simpleTopologyConfig()
		config.Switches["s2"] = &SwitchConfig{}
		config.Links = append(config.Links, LinkSpec{"h1", "s2"})
		topo := Must1(NewTopology(config))
		_, err := topo.SwitchOf("h1")
		if !errors.Is(err, ErrTopology) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("an unattached host is a topology error", func(t *testing.T) {
		config := simpleTopologyConfig()
		config.Hosts = append(config.Hosts, "h3")
		topo := Must1(NewTopology(config))
		_, err := topo.SwitchOf("h3")
		if !errors.Is(err, ErrTopology) {
			t.Fatal("not the error we expected", err)
		}
	})
}

func TestTopologyLinksOf(t *testing.T) {
	topo := Must1(NewTopology(simpleTopologyConfig()))
	links := topo.LinksOf("s1")
	if len(links) != 2 {
		t.Fatal("unexpected number of links", len(links))
	}
	// normalization order is declaration order
	if links[0].Node1 != "h1" || links[1].Node1 != "h2" {
		t.Fatal("unexpected order", links)
	}
}

func TestTopologyLinkBetween(t *testing.T) {
	topo := Must1(NewTopology(simpleTopologyConfig()))
	if topo.LinkBetween("s1", "h1") == nil {
		t.Fatal("expected a link regardless of argument order")
	}
	if topo.LinkBetween("h1", "h2") != nil {
		t.Fatal("expected no link")
	}
}

func TestTopologyIsP4Switch(t *testing.T) {
	topo := Must1(NewTopology(&TopologyConfig{
		Hosts: []string{"h1"},
		Switches: map[string]*SwitchConfig{
			"s1": {Program: "l2fwd.p4"},
			"s2": {},
		},
		Links: []LinkSpec{
			{"h1", "s1"},
			{"s1", "s2"},
		},
	}))
	if !topo.IsP4Switch("s1") {
		t.Fatal("s1 should be a P4 switch")
	}
	if topo.IsP4Switch("s2") {
		t.Fatal("s2 should not be a P4 switch")
	}
	if topo.IsP4Switch("h1") {
		t.Fatal("h1 should not be a P4 switch")
	}
}
