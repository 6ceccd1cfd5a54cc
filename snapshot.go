package p4utils

//
// Realized-topology snapshot
//

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultSnapshotPath is where a run saves its [TopologyDB] unless
// configured otherwise.
const DefaultSnapshotPath = "./topology.db"

// IfaceRecord is the snapshot of one interface of a node, keyed in the
// owning [NodeRecord] by the neighbor it faces.
type IfaceRecord struct {
	// IP is the interface address in CIDR form, empty when the
	// interface carries no address.
	IP string `json:"ip,omitempty" yaml:"ip,omitempty"`

	// MAC is the hardware address.
	MAC string `json:"mac" yaml:"mac"`

	// Intf is the interface name.
	Intf string `json:"intf" yaml:"intf"`

	// Bandwidth is the link bandwidth in Mbps, -1 when unlimited.
	Bandwidth float64 `json:"bw" yaml:"bw"`

	// Weight is the link routing weight.
	Weight int `json:"weight" yaml:"weight"`
}

// NodeRecord is the snapshot of one node of the realized network.
type NodeRecord struct {
	// Type is "host" or "switch".
	Type string `json:"type" yaml:"type"`

	// Gateway is the host's phony gateway IP; empty for switches.
	Gateway string `json:"gateway,omitempty" yaml:"gateway,omitempty"`

	// Neighbors maps each directly-connected node to the interface
	// of this node facing it.
	Neighbors map[string]*IfaceRecord `json:"neighbors" yaml:"neighbors"`

	// InterfacesToNode maps interface names to the neighbor they face.
	InterfacesToNode map[string]string `json:"interfaces_to_node" yaml:"interfaces_to_node"`

	// InterfacesToPort maps interface names to the node's port ordinal.
	// Host ports count from zero; switch ports count from one, matching
	// the bmv2 port numbering that control-plane entries reference.
	InterfacesToPort map[string]int `json:"interfaces_to_port" yaml:"interfaces_to_port"`
}

// TopologyDB is a serialized record of a realized topology: nodes,
// links, and assigned addresses. It is written once per run to a
// well-known location so that independent tooling can inspect the
// network or reconnect to it later.
type TopologyDB struct {
	// Nodes maps node identifiers to their records.
	Nodes map[string]*NodeRecord `json:"nodes" yaml:"nodes"`
}

// SnapshotNetwork captures a [TopologyDB] from a started network. The
// per-interface facts (addresses, MACs, names) come from the live
// backend; the gateway and link attributes come from the topology and
// the address plan.
func SnapshotNetwork(topo *Topology, backend Backend, plan AddressPlan) (*TopologyDB, error) {
	db := &TopologyDB{Nodes: map[string]*NodeRecord{}}

	for _, host := range topo.Hosts() {
		node, err := backend.Host(host)
		if err != nil {
			return nil, err
		}
		record := newNodeRecord("host", topo, host, node.Interfaces())
		if hostPlan := plan[host]; hostPlan != nil {
			record.Gateway = hostPlan.Gateway
		}
		db.Nodes[host] = record
	}
	for _, name := range topo.Switches() {
		node, err := backend.Switch(name)
		if err != nil {
			return nil, err
		}
		db.Nodes[name] = newNodeRecord("switch", topo, name, node.Interfaces())
	}
	return db, nil
}

// newNodeRecord builds the record of one node from its live interfaces.
// Port ordinals derive from the attachment order reported by the
// backend.
func newNodeRecord(kind string, topo *Topology, name string, ifaces []*IfaceFacts) *NodeRecord {
	record := &NodeRecord{
		Type:             kind,
		Neighbors:        map[string]*IfaceRecord{},
		InterfacesToNode: map[string]string{},
		InterfacesToPort: map[string]int{},
	}
	for idx, iface := range ifaces {
		if iface.Peer == nil {
			continue
		}
		port := idx
		if kind == "switch" {
			port = idx + 1
		}
		entry := &IfaceRecord{
			MAC:       iface.MAC,
			Intf:      iface.Name,
			Bandwidth: -1,
			Weight:    DefaultLinkWeight,
		}
		if iface.IP != "" {
			entry.IP = fmt.Sprintf("%s/%d", iface.IP, iface.PrefixLen)
		}
		if link := topo.LinkBetween(name, iface.PeerNode); link != nil {
			if link.Bandwidth > 0 {
				entry.Bandwidth = link.Bandwidth
			}
			entry.Weight = link.Weight
		}
		record.Neighbors[iface.PeerNode] = entry
		record.InterfacesToNode[iface.Name] = iface.PeerNode
		record.InterfacesToPort[iface.Name] = port
	}
	return record
}

// Save writes the snapshot to the given path. The codec is selected by
// file extension: `.yaml` and `.yml` produce YAML, everything else JSON.
func (db *TopologyDB) Save(path string) error {
	var data []byte
	var err error
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(db)
	default:
		data, err = json.Marshal(db)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadTopologyDB reads a snapshot previously written by
// [TopologyDB.Save].
func LoadTopologyDB(path string) (*TopologyDB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	db := &TopologyDB{}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, db)
	default:
		err = json.Unmarshal(data, db)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Type returns the type of a node, or an error when the node is not in
// the snapshot.
func (db *TopologyDB) Type(node string) (string, error) {
	record := db.Nodes[node]
	if record == nil {
		return "", fmt.Errorf("%w: no node named %s in the network", ErrTopology, node)
	}
	return record.Type, nil
}

// Interface returns the address of node1's interface facing node2.
func (db *TopologyDB) Interface(node1, node2 string) (netip.Prefix, error) {
	entry, err := db.iface(node1, node2)
	if err != nil {
		return netip.Prefix{}, err
	}
	prefix, err := netip.ParsePrefix(entry.IP)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %s-%s: %s", ErrTopology, node1, node2, err.Error())
	}
	return prefix, nil
}

// Subnet returns the network linking node1 and node2, in CIDR form.
func (db *TopologyDB) Subnet(node1, node2 string) (string, error) {
	prefix, err := db.Interface(node1, node2)
	if err != nil {
		return "", err
	}
	return prefix.Masked().String(), nil
}

// InterfaceIP returns the IP address, without prefix, of the named
// interface of a node.
func (db *TopologyDB) InterfaceIP(node, iface string) (string, error) {
	record := db.Nodes[node]
	if record == nil {
		return "", fmt.Errorf("%w: no node named %s in the network", ErrTopology, node)
	}
	neighbor, ok := record.InterfacesToNode[iface]
	if !ok {
		return "", fmt.Errorf("%w: %s has no interface named %s", ErrTopology, node, iface)
	}
	entry := record.Neighbors[neighbor]
	if entry == nil || entry.IP == "" {
		return "", fmt.Errorf("%w: interface %s of %s carries no address",
			ErrTopology, iface, node)
	}
	prefix, err := netip.ParsePrefix(entry.IP)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %s", ErrTopology, node, err.Error())
	}
	return prefix.Addr().String(), nil
}

// InterfaceBandwidth returns the bandwidth capacity of node1's
// interface facing node2, -1 when unlimited.
func (db *TopologyDB) InterfaceBandwidth(node1, node2 string) (float64, error) {
	entry, err := db.iface(node1, node2)
	if err != nil {
		return 0, err
	}
	return entry.Bandwidth, nil
}

// Neighbors returns the direct neighbors of a node in sorted order.
func (db *TopologyDB) Neighbors(node string) ([]string, error) {
	record := db.Nodes[node]
	if record == nil {
		return nil, fmt.Errorf("%w: no node named %s in the network", ErrTopology, node)
	}
	neighbors := make([]string, 0, len(record.Neighbors))
	for name := range record.Neighbors {
		neighbors = append(neighbors, name)
	}
	sort.Strings(neighbors)
	return neighbors, nil
}

// HostIP returns the IP address, without prefix, of a host's first
// interface.
func (db *TopologyDB) HostIP(host string) (string, error) {
	record := db.Nodes[host]
	if record == nil || record.Type != "host" {
		return "", fmt.Errorf("%w: no host in the network has the name %s", ErrTopology, host)
	}
	for _, entry := range record.Neighbors {
		if entry.IP == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(entry.IP)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %s", ErrTopology, host, err.Error())
		}
		return prefix.Addr().String(), nil
	}
	return "", fmt.Errorf("%w: host %s has no addressed interface", ErrTopology, host)
}

// HostName returns the host carrying the given IP address.
func (db *TopologyDB) HostName(ip string) (string, error) {
	names := make([]string, 0, len(db.Nodes))
	for name := range db.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if db.Nodes[name].Type != "host" {
			continue
		}
		hostIP, err := db.HostIP(name)
		if err != nil {
			continue
		}
		if hostIP == ip {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: no host in the network has the IP %s", ErrTopology, ip)
}

// iface returns the record of node1's interface facing node2.
func (db *TopologyDB) iface(node1, node2 string) (*IfaceRecord, error) {
	record := db.Nodes[node1]
	if record == nil {
		return nil, fmt.Errorf("%w: no node named %s in the network", ErrTopology, node1)
	}
	entry := record.Neighbors[node2]
	if entry == nil {
		return nil, fmt.Errorf("%w: %s has no interface facing %s", ErrTopology, node1, node2)
	}
	return entry, nil
}
