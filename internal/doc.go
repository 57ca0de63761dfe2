// Package internal contains the core implementation packages for mediakit.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - types: Document, section and component data model
//   - schema: Field schemas, defaults and content checks
//   - registry: Component type definitions and instance validation
//   - components: Built-in component types and their templ rendering
//   - state: Document state with snapshot undo and redo
//   - eventbus: Named events delivered to subscribers
//   - builder: The editing API; every mutation goes through it
//   - canvas, designpanel, palette, controls: Editor surfaces over the builder
//   - adapters: Kit storage (file, SQLite, PostgreSQL, MySQL, MongoDB) and host events
//   - templates, export, renderer: Kit templates, export formats and HTML output
//   - autosave, watcher: Scheduled saves and template hot reload
//   - server, mcp: HTTP/WebSocket editor and MCP tools
//   - config, logging, errors, version: Ambient support
//
// # Inter-Package Communication
//
// The builder owns the document. Surfaces call builder methods and learn
// about changes from events on the bus, never by reading each other's state.
// The server forwards every bus event to WebSocket clients.
//
// # Errors
//
// Every failure the builder reports is an *errors.BuilderError carrying a
// type (validation, not found, adapter, invariant) that the HTTP and MCP
// layers map onto status codes and tool errors.
package internal
