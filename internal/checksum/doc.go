// Package checksum provides content hashing for change detection.
//
// Three operations are offered:
//
//   - Raw checksum: hash of the exact content of one artifact, used to verify
//     that a copied artifact matches its source byte for byte
//   - Fingerprint: hash of a whole package, covering every artifact path and
//     content, independent of discovery order
//   - Digest: hash of an ordered list of strings, used to summarize the
//     reference resolutions applied to a package
//
// Fingerprints sort entries by path and length-prefix every field, so renaming
// a file or moving bytes between files always changes the result.
//
// # Example Usage
//
//	calculator := checksum.New()
//	raw := calculator.CalculateRaw(content)
//	fp := calculator.Fingerprint([]checksum.Entry{{Path: "SKILL.md", Content: content}})
//
// # Thread Safety
//
// SHA256 is safe for concurrent use by multiple goroutines.
package checksum
