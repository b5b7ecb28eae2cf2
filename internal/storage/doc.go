// Package storage models Confluence storage-format markup as a generic
// ordered tree.
//
// Storage format is XML-shaped but not well-formed XML: it uses the ac: and
// ri: namespace prefixes without declaring them, leans on HTML character
// entities, and a page body is a fragment with many roots rather than a
// single document element. The parser therefore runs the stdlib tokenizer in
// non-strict mode and keeps element and attribute names verbatim as written
// ("ac:task-id"), never resolving prefixes.
//
// The tree is deliberately generic: nodes, attributes, text, and
// query-by-predicate. Everything Confluence-specific (macros, tasks,
// markers) lives in the packages that consume it.
//
// Rendering is stable: parsing the renderer's own output and rendering it
// again produces byte-identical markup. The sync pipeline's idempotence
// check depends on this.
package storage
