// Package p4utils provisions an emulated P4 network from a declarative
// topology description.
//
// The entry point is the [Runner], which you construct from a parsed
// [AppConfig] (see [LoadConfig]) and a [Backend]. The [Runner] builds and
// validates the [Topology], asks the [Backend] to start the emulated
// network, provisions every host's network stack (see [Provisioner]),
// pushes control-plane entries into every switch that declares a command
// file (see [Loader]), saves a [TopologyDB] snapshot of the realized
// network, and finally stops the network. The stop is unconditional: a
// failed run still releases its emulator resources.
//
// The [Backend] is deliberately narrow. This package never creates
// namespaces, interfaces, or switch processes itself; it only asks an
// emulator to do so and then injects configuration through the
// capabilities the emulator exposes. The [StaticBackend] is an in-memory
// implementation of [Backend] with deterministic addressing that powers
// the test suite and the p4run command's dry-run mode. Real emulator
// backends register themselves by name with [RegisterBackend] and are
// selected through the topology description.
//
// A saved [TopologyDB] can later be reloaded by independent tooling and
// queried through a [NetworkGraph], which answers adjacency and
// shortest-path questions about the realized network.
package p4utils
