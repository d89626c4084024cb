// Package output renders analysis results for the command line and the
// MCP tools.
//
// # Output Types
//
// Declarations are projected into compact views before rendering:
//
//   - ClassOutput: one class, interface, trait or enum (apishape analyze Foo)
//   - FileOutput: every declaration in a file (apishape analyze src/Foo.php)
//   - ListOutput: several targets (apishape analyze src/)
//
// Names are map keys, so a reader looking for User scans for that key.
// Methods collapse to a one-line signature:
//
//	find:
//	  signature: '(int $id): ?static'
//	  visibility: public
//	  modifiers: [static]
//
// # Format Types
//
// Three output formats are supported:
//
//   - YAML (default): human-readable
//   - JSON: machine-readable, same structure as YAML
//   - debug: a go-spew dump of the raw value, for inspecting the type lattice
package output
