package p4utils

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPlanAddresses(t *testing.T) {
	t.Run("the gateway derives from the host ordinal", func(t *testing.T) {
		topo := Must1(NewTopology(&TopologyConfig{
			Hosts: []string{"h7", "h12"},
			Switches: map[string]*SwitchConfig{
				"s1": {},
			},
			Links: []LinkSpec{
				{"h7", "s1"},
				{"h12", "s1"},
			},
		}))
		plan, err := PlanAddresses(topo)
		if err != nil {
			t.Fatal(err)
		}
		expect := AddressPlan{
			"h7":  {Switch: "s1", Gateway: "10.0.7.254"},
			"h12": {Switch: "s1", Gateway: "10.0.12.254"},
		}
		if diff := cmp.Diff(expect, plan); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("planning is a pure function of the topology", func(t *testing.T) {
		topo := Must1(NewTopology(simpleTopologyConfig()))
		first := Must1(PlanAddresses(topo))
		second := Must1(PlanAddresses(topo))
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("a non-numeric host suffix is a configuration error", func(t *testing.T) {
		topo := Must1(NewTopology(&TopologyConfig{
			Hosts: []string{"hx"},
			Switches: map[string]*SwitchConfig{
				"s1": {},
			},
			Links: []LinkSpec{
				{"hx", "s1"},
			},
		}))
		_, err := PlanAddresses(topo)
		if !errors.Is(err, ErrConfiguration) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("an unattached host fails planning", func(t *testing.T) {
		topo := Must1(NewTopology(&TopologyConfig{
			Hosts: []string{"h1"},
			Switches: map[string]*SwitchConfig{
				"s1": {},
			},
		}))
		_, err := PlanAddresses(topo)
		if !errors.Is(err, ErrTopology) {
			t.Fatal("not the error we expected", err)
		}
	})
}
