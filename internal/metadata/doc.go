// Package metadata extracts, merges and encodes the declared attributes of a
// skill package.
//
// # Overview
//
// A package declares metadata in up to two places:
//   - a YAML header block at the top of its primary document
//   - a sibling JSON file (metadata.json by default)
//
// Both are optional. When both are present they are merged key by key and the
// sibling file wins on conflicting keys.
//
// # Header Format
//
//	---
//	name: django
//	description: Django web framework patterns
//	requires:
//	  - ../../core/SKILL.md
//	---
//	# Django
//
// # Encoding
//
// Encode writes the merged attributes as JSON with the well-known keys first
// (name, version, category, toolchain, framework, tags, entry_point_tokens,
// full_tokens, related_skills, author, license) followed by the rest in lexical
// order, indented by two spaces and ending with a newline, so that deployed
// metadata files are stable across runs.
//
// # Package Structure
//
//   - extractor.go: header block location and YAML parsing
//   - document.go: JSON parsing, merging, canonical encoding, path classification
//   - validator.go: field checks reported as warnings
//   - errors.go: MetadataError with file position and hint
package metadata
