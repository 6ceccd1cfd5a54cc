package p4utils

//
// Link normalization
//

import (
	"fmt"
)

// DefaultLinkWeight is the routing weight of a link that does not
// specify one.
const DefaultLinkWeight = 1

// DefaultLinkLatency is the latency of a link that does not specify one.
const DefaultLinkLatency = "0ms"

// Link is a canonical, directionless link between two nodes. Node1 is
// always the lexicographically smaller identifier, so that a link parsed
// from (a, b) and one parsed from (b, a) are identical records.
type Link struct {
	// Node1 is the smaller endpoint identifier.
	Node1 string

	// Node2 is the larger endpoint identifier.
	Node2 string

	// Latency is the link latency as a duration string carrying an
	// explicit unit (e.g., "2ms"). Never empty.
	Latency string

	// Bandwidth is the link bandwidth in Mbps; zero means unlimited.
	Bandwidth float64

	// Weight is the link cost for routing purposes.
	Weight int
}

// ParseLink normalizes a raw link tuple of 2-5 positional fields:
// node1, node2, then optional latency, bandwidth, and weight. A
// present-but-empty optional field keeps its default, which allows, for
// example, specifying the weight while skipping the latency. Returns
// [ErrConfiguration] if the tuple is malformed or if it connects a host
// to another host.
func ParseLink(spec LinkSpec) (*Link, error) {
	if len(spec) < 2 || len(spec) > 5 {
		return nil, fmt.Errorf("%w: link %v: expected 2-5 fields, got %d",
			ErrConfiguration, spec, len(spec))
	}

	node1, ok1 := spec[0].(string)
	node2, ok2 := spec[1].(string)
	if !ok1 || !ok2 || node1 == "" || node2 == "" {
		return nil, fmt.Errorf("%w: link %v: endpoints must be node identifiers",
			ErrConfiguration, spec)
	}

	// make sure the endpoints are ordered alphabetically so that the
	// link's identity does not depend on declaration order
	if node1 > node2 {
		node1, node2 = node2, node1
	}

	link := &Link{
		Node1:     node1,
		Node2:     node2,
		Latency:   DefaultLinkLatency,
		Bandwidth: 0,
		Weight:    DefaultLinkWeight,
	}

	if len(spec) > 2 && !emptyField(spec[2]) {
		latency, err := formatLatency(spec[2])
		if err != nil {
			return nil, fmt.Errorf("%w: link %s-%s: %s",
				ErrConfiguration, node1, node2, err.Error())
		}
		link.Latency = latency
	}
	if len(spec) > 3 && !emptyField(spec[3]) {
		bandwidth, ok := numericField(spec[3])
		if !ok {
			return nil, fmt.Errorf("%w: link %s-%s: bandwidth must be numeric, got %v",
				ErrConfiguration, node1, node2, spec[3])
		}
		link.Bandwidth = bandwidth
	}
	if len(spec) > 4 && !emptyField(spec[4]) {
		weight, ok := numericField(spec[4])
		if !ok {
			return nil, fmt.Errorf("%w: link %s-%s: weight must be numeric, got %v",
				ErrConfiguration, node1, node2, spec[4])
		}
		link.Weight = int(weight)
	}

	// hosts are only allowed to connect to switches
	if isHostName(node1) && isHostName(node2) {
		return nil, fmt.Errorf("%w: link %s-%s: hosts must connect to switches, not to hosts",
			ErrConfiguration, node1, node2)
	}

	return link, nil
}

// ParseLinks normalizes a list of raw link tuples preserving their
// declaration order.
func ParseLinks(specs []LinkSpec) ([]*Link, error) {
	links := make([]*Link, 0, len(specs))
	for _, spec := range specs {
		link, err := ParseLink(spec)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

// formatLatency materializes a latency field as a duration string with
// an explicit unit. A string is passed through unchanged; a bare number
// is interpreted as milliseconds.
func formatLatency(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return fmt.Sprintf("%dms", v), nil
	case float64:
		return fmt.Sprintf("%vms", v), nil
	default:
		return "", fmt.Errorf("latency must be a string or a number, got %v", value)
	}
}

// numericField converts a numeric tuple field. JSON decodes numbers as
// float64 while YAML may decode them as int.
func numericField(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// emptyField tells whether an optional tuple field should be treated
// as not specified.
func emptyField(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case int:
		return v == 0
	case float64:
		return v == 0
	case bool:
		return !v
	default:
		return false
	}
}

// isHostName tells whether an identifier names a host. The first
// character of an identifier determines the node kind: `h` for hosts
// and `s` for switches.
func isHostName(name string) bool {
	return len(name) > 0 && name[0] == 'h'
}

// isSwitchName tells whether an identifier names a switch.
func isSwitchName(name string) bool {
	return len(name) > 0 && name[0] == 's'
}
