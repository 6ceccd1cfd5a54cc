package p4utils

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestStaticBackend(t *testing.T) {
	t.Run("node handles are only valid while running", func(t *testing.T) {
		backend := NewStaticBackend(&NullLogger{})
		if _, err := backend.Host("h1"); !errors.Is(err, ErrBackend) {
			t.Fatal("not the error we expected", err)
		}

		topo := Must1(NewTopology(simpleTopologyConfig()))
		Must0(backend.Start(context.Background(), topo))
		if _, err := backend.Host("h1"); err != nil {
			t.Fatal(err)
		}
		if _, err := backend.Switch("s1"); err != nil {
			t.Fatal(err)
		}
		if _, err := backend.Host("h9"); !errors.Is(err, ErrBackend) {
			t.Fatal("not the error we expected", err)
		}

		Must0(backend.Stop(context.Background()))
		if _, err := backend.Host("h1"); !errors.Is(err, ErrBackend) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("starting twice fails", func(t *testing.T) {
		backend := NewStaticBackend(&NullLogger{})
		topo := Must1(NewTopology(simpleTopologyConfig()))
		Must0(backend.Start(context.Background(), topo))
		if err := backend.Start(context.Background(), topo); !errors.Is(err, ErrBackend) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("interfaces are peered across links", func(t *testing.T) {
		backend := NewStaticBackend(&NullLogger{})
		topo := Must1(NewTopology(simpleTopologyConfig()))
		Must0(backend.Start(context.Background(), topo))

		host := Must1(backend.Host("h1"))
		ifaces := host.Interfaces()
		if len(ifaces) != 1 {
			t.Fatal("unexpected interfaces", ifaces)
		}
		iface := ifaces[0]
		if iface.PeerNode != "s1" || iface.Peer == nil {
			t.Fatal("h1 is not peered with s1")
		}
		if iface.Peer.Peer != iface {
			t.Fatal("peering is not symmetric")
		}
		if iface.MAC == iface.Peer.MAC {
			t.Fatal("hardware addresses must be unique")
		}

		// the switch has one port per link
		sw := Must1(backend.Switch("s1"))
		if got := len(sw.Interfaces()); got != 2 {
			t.Fatal("unexpected switch ports", got)
		}
	})

	t.Run("renaming an unknown interface fails", func(t *testing.T) {
		backend := NewStaticBackend(&NullLogger{})
		topo := Must1(NewTopology(simpleTopologyConfig()))
		Must0(backend.Start(context.Background(), topo))
		host := Must1(backend.Host("h1"))
		err := host.RenameInterface(context.Background(), "nope0", "h1-eth0")
		if !errors.Is(err, ErrBackend) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("control-plane ports are assigned deterministically", func(t *testing.T) {
		backend := NewStaticBackend(&NullLogger{})
		topo := Must1(NewTopology(chainTopologyConfig()))
		Must0(backend.Start(context.Background(), topo))
		s1 := Must1(backend.Switch("s1"))
		s2 := Must1(backend.Switch("s2"))
		if s1.ControlPlanePort() != 9090 || s2.ControlPlanePort() != 9091 {
			t.Fatal("unexpected ports", s1.ControlPlanePort(), s2.ControlPlanePort())
		}
	})

	t.Run("describe names the node and its interfaces", func(t *testing.T) {
		backend := NewStaticBackend(&NullLogger{})
		Must0(backend.AssignAddress("h1", "10.0.1.1/24"))
		topo := Must1(NewTopology(simpleTopologyConfig()))
		Must0(backend.Start(context.Background(), topo))
		host := Must1(backend.Host("h1"))
		description := host.Describe()
		if !strings.HasPrefix(description, "h1:") {
			t.Fatal("unexpected description", description)
		}
		if !strings.Contains(description, "10.0.1.1/24") {
			t.Fatal("description does not contain the address", description)
		}
	})
}
