// Package driving provides interfaces for primary (inbound) ports.
//
// Driving ports are the operations external actors invoke on the
// core: ingesting a corpus and answering queries. The CLI and TUI
// adapters depend on these interfaces.
package driving
