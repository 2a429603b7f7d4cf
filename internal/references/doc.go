// Package references detects and rewrites cross-package references so they
// stay resolvable after hierarchical packages are flattened.
//
// Detection covers four forms:
//   - link: markdown inline links and images, [text](target "title")
//   - definition: markdown reference definitions, [label]: target
//   - dependency: values of requires, depends_on, dependencies and
//     related_skills in the primary document header or the metadata file
//   - prose: ./ and ../ paths, or root-relative paths whose first segment is a
//     top-level directory holding packages
//
// Fenced code blocks are never scanned. Only textual artifacts (.md,
// .markdown, .mdx, .txt without NUL bytes) are rewritten.
//
// Rewrite policy, by classification:
//   - hard, target deployed alongside: flat path ../<name>/<rest>
//   - hard, target known but not guaranteed: name-only mention marked "if deployed"
//   - hard, target missing: name-only mention and a DanglingHardReference warning
//   - soft: name-only mention
//
// Rewritten paths and name-only mentions are not detected again, so rewriting
// is idempotent.
package references
