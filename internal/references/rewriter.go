package references

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/vvka-141/skilldeploy/internal/metadata"
	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

const conditionalComment = "# if deployed"

var (
	textualExtensions = map[string]bool{".md": true, ".markdown": true, ".mdx": true, ".txt": true}
	schemeRe          = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*:`)
)

// Result is the outcome of rewriting one package.
type Result struct {
	Primary   skilldeploy.Artifact
	Auxiliary []skilldeploy.Artifact

	// Metadata is the merged metadata with dependency values rewritten
	Metadata metadata.Attributes

	References []skilldeploy.Reference
	Warnings   []skilldeploy.Warning

	// Modified holds relative paths of artifacts whose content changed
	Modified map[string]bool

	MetadataModified bool
}

// HadRewrites reports whether any artifact or metadata value changed.
func (r Result) HadRewrites() bool {
	return len(r.Modified) > 0 || r.MetadataModified
}

// Artifacts returns the primary document followed by the auxiliary artifacts.
func (r Result) Artifacts() []skilldeploy.Artifact {
	return append([]skilldeploy.Artifact{r.Primary}, r.Auxiliary...)
}

// Rewriter detects cross-package references in a package's artifacts and
// rewrites them for the flat target layout. It is safe for concurrent use;
// all shared state lives in the immutable Index.
type Rewriter struct {
	index           *Index
	classifier      Classifier
	fix             bool
	primaryDocument string
	metadataFile    string
}

// NewRewriter creates a rewriter. A nil classifier selects DefaultClassifier.
// When fix is false references are only detected and flagged.
// Panics if index is nil.
func NewRewriter(index *Index, classifier Classifier, fix bool, primaryDocument, metadataFile string) *Rewriter {
	if index == nil {
		panic("index cannot be nil")
	}
	if classifier == nil {
		classifier = DefaultClassifier{}
	}
	if primaryDocument == "" {
		primaryDocument = skilldeploy.DefaultPrimaryDocument
	}
	if metadataFile == "" {
		metadataFile = skilldeploy.DefaultMetadataFile
	}
	return &Rewriter{
		index:           index,
		classifier:      classifier,
		fix:             fix,
		primaryDocument: primaryDocument,
		metadataFile:    metadataFile,
	}
}

// Rewrite scans every textual artifact of pkg. Artifacts in the returned
// Result carry the rewritten content; pkg itself is not modified.
func (r *Rewriter) Rewrite(pkg *skilldeploy.Package) (Result, error) {
	if pkg == nil {
		return Result{}, errors.New("package cannot be nil")
	}
	if pkg.DeployedName == "" {
		return Result{}, fmt.Errorf("package %s has no deployed name", pkg.SourceKey())
	}

	res := Result{Modified: map[string]bool{}}
	res.Primary = r.rewriteArtifact(pkg, pkg.PrimaryDocument, true, &res)
	for _, a := range pkg.AuxiliaryArtifacts {
		res.Auxiliary = append(res.Auxiliary, r.rewriteArtifact(pkg, a, false, &res))
	}
	r.rewriteMetadata(pkg, &res)
	return res, nil
}

// decision is the resolved meaning of one site.
type decision struct {
	name       string
	rest       string
	suffix     string
	kind       skilldeploy.RefKind
	resolution skilldeploy.Resolution
}

type edit struct {
	start, end int
	text       string
}

func (r *Rewriter) rewriteArtifact(pkg *skilldeploy.Package, a skilldeploy.Artifact, primary bool, res *Result) skilldeploy.Artifact {
	if !textual(a) {
		return a
	}

	var sites []site
	bodyStart := 0
	if primary {
		if h, ok := metadata.FindHeader(a.Content); ok {
			sites = append(sites, scanHeader(a.Content, h)...)
			bodyStart = len(a.Content)
			if i := bytes.IndexByte(a.Content[h.End:], '\n'); i >= 0 {
				bodyStart = h.End + i + 1
			}
		}
	}
	sites = append(sites, scanText(a.Content, bodyStart)...)

	var edits []edit
	conditionalLines := map[int][]string{}
	lineEnds := map[int]int{}
	inlineLines := map[int]bool{}

	for _, s := range sites {
		d, ok := r.resolve(pkg, a.RelativePath, s.form, s.expr, s.line, s.inCode)
		if !ok {
			continue
		}
		res.References = append(res.References, skilldeploy.Reference{
			SourcePackage: pkg.DeployedName,
			Artifact:      a.RelativePath,
			Line:          s.line,
			Offset:        s.exprStart,
			Kind:          d.kind,
			Form:          s.form,
			Expression:    s.expr,
			Target:        d.name,
			Resolution:    d.resolution,
		})
		if w, ok := r.warning(pkg, a.RelativePath, s.line, s.form, s.expr, d); ok {
			res.Warnings = append(res.Warnings, w)
		}
		if d.resolution == skilldeploy.ResolutionFlagged {
			continue
		}

		edits = append(edits, replacement(s, d, upPrefix(a.RelativePath)))
		if s.form == skilldeploy.FormDependency && d.resolution == skilldeploy.ResolutionConditional {
			conditionalLines[s.line] = append(conditionalLines[s.line], d.name)
			lineEnds[s.line] = s.lineEnd
			inlineLines[s.line] = s.inline
		}
	}

	for ln, names := range conditionalLines {
		end := lineEnds[ln]
		if bytes.Contains(lineAt(a.Content, end), []byte(conditionalComment)) {
			continue
		}
		comment := "  " + conditionalComment
		if inlineLines[ln] {
			comment += ": " + strings.Join(names, ", ")
		}
		edits = append(edits, edit{start: end, end: end, text: comment})
	}

	if len(edits) == 0 {
		return a
	}
	content := applyEdits(a.Content, edits)
	if bytes.Equal(content, a.Content) {
		return a
	}
	res.Modified[a.RelativePath] = true
	out := a
	out.Content = content
	out.Size = int64(len(content))
	return out
}

// resolve decides whether expr is a cross-package reference and what to do
// with it. ok is false for anything that is not a reference.
func (r *Rewriter) resolve(pkg *skilldeploy.Package, artifact string, form skilldeploy.RefForm, expr string, lineNum int, inCode bool) (decision, bool) {
	p, suffix := splitSuffix(expr)
	if p == "" || schemeRe.MatchString(p) || strings.HasPrefix(p, "/") || strings.HasPrefix(p, "~") {
		return decision{}, false
	}
	own := pkg.SourceKey()
	dotted := strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../")
	first := strings.SplitN(p, "/", 2)[0]
	rootRelative := !dotted && r.index.TopLevel(first) && strings.Contains(p, "/")

	var target string
	switch {
	case form == skilldeploy.FormProse && !dotted:
		if !rootRelative {
			return decision{}, false
		}
		target = path.Clean(p)
	default:
		target = path.Join(own, path.Dir(artifact), p)
	}
	if target == ".." || strings.HasPrefix(target, "../") {
		return decision{}, false
	}

	key, rest, found := r.index.Lookup(target)
	if rootRelative && form == skilldeploy.FormDependency && (!found || key == own) {
		target = path.Clean(p)
		key, rest, found = r.index.Lookup(target)
	}

	kind := r.classifier.Classify(Candidate{Form: form, Expression: expr, Artifact: artifact, Line: lineNum, InCode: inCode})
	d := decision{kind: kind, rest: rest, suffix: suffix}

	switch {
	case found && key == own:
		return decision{}, false
	case r.alreadyRewritten(own, artifact, form, p, found, key):
		return decision{}, false
	case !found:
		if target == own || strings.HasPrefix(target, own+"/") || kind == skilldeploy.RefSoft {
			return decision{}, false
		}
		d.name = r.index.WouldBeName(target)
		d.rest = ""
		d.resolution = skilldeploy.ResolutionDangling
	case kind == skilldeploy.RefSoft:
		d.name = r.index.Name(key)
		d.resolution = skilldeploy.ResolutionMention
	case r.index.Guaranteed(own, key):
		d.name = r.index.Name(key)
		d.resolution = skilldeploy.ResolutionRewritten
	default:
		d.name = r.index.Name(key)
		d.resolution = skilldeploy.ResolutionConditional
	}

	if !r.fix {
		d.resolution = skilldeploy.ResolutionFlagged
	}
	return d, true
}

// alreadyRewritten recognizes the output of an earlier run: bare deployed
// names for dependencies, flat-layout paths for links and definitions. A path
// whose name segment lies inside a source package resolves normally; one that
// only falls into an ancestor package, as ../a-y/ from a/x with a parent a,
// is left alone.
func (r *Rewriter) alreadyRewritten(own, artifact string, form skilldeploy.RefForm, p string, found bool, key string) bool {
	var up, name string
	switch form {
	case skilldeploy.FormDependency:
		name = p
	case skilldeploy.FormLink, skilldeploy.FormDefinition:
		up = upPrefix(artifact)
		if !strings.HasPrefix(p, up) {
			return false
		}
		name = strings.SplitN(strings.TrimPrefix(p, up), "/", 2)[0]
	default:
		return false
	}
	if !r.index.KnownName(name) {
		return false
	}
	at := path.Join(own, path.Dir(artifact), up+name)
	return !found || (key != at && !strings.HasPrefix(key, at+"/"))
}

func (r *Rewriter) warning(pkg *skilldeploy.Package, artifact string, lineNum int, form skilldeploy.RefForm, expr string, d decision) (skilldeploy.Warning, bool) {
	at := artifact
	if lineNum > 0 {
		at = fmt.Sprintf("%s:%d", artifact, lineNum)
	}
	w := skilldeploy.Warning{Package: pkg.DeployedName}
	switch {
	case d.resolution == skilldeploy.ResolutionFlagged && d.kind == skilldeploy.RefHard:
		w.Code = skilldeploy.WarnUnrewrittenReference
		w.Message = fmt.Sprintf("%s: %s %q to %s left unrewritten", at, form, expr, d.name)
	case d.resolution == skilldeploy.ResolutionDangling:
		w.Code = skilldeploy.WarnDanglingHardReference
		w.Message = fmt.Sprintf("%s: %s %q points to missing package %s", at, form, expr, d.name)
	case d.resolution == skilldeploy.ResolutionConditional:
		w.Code = skilldeploy.WarnConditionalReference
		w.Message = fmt.Sprintf("%s: %s %q targets %s, which is not deployed alongside", at, form, expr, d.name)
	default:
		return skilldeploy.Warning{}, false
	}
	return w, true
}

// replacement renders the new text for a site.
func replacement(s site, d decision, up string) edit {
	expr := edit{start: s.exprStart, end: s.exprEnd}
	whole := edit{start: s.wholeStart, end: s.wholeEnd}

	if s.form == skilldeploy.FormDependency {
		expr.text = d.name
		return expr
	}

	if d.resolution == skilldeploy.ResolutionRewritten {
		flat := up + d.name
		if d.rest != "" {
			flat += "/" + d.rest
		}
		expr.text = flat + d.suffix
		return expr
	}

	mention := "`" + d.name + "`"
	switch s.form {
	case skilldeploy.FormLink:
		whole.text = seeAlso(s.text, mention, d.resolution == skilldeploy.ResolutionConditional)
		return whole
	case skilldeploy.FormDefinition:
		note := "see " + mention
		if d.resolution == skilldeploy.ResolutionConditional {
			note += ", if deployed"
		}
		whole.text = fmt.Sprintf("[%s]: # (%s)", s.text, note)
		return whole
	}

	if s.inCode {
		mention = d.name
	}
	if d.resolution == skilldeploy.ResolutionConditional && !s.inCode {
		mention += " (if deployed)"
	}
	expr.text = mention
	return expr
}

func seeAlso(text, mention string, conditional bool) string {
	text = strings.TrimSpace(text)
	if text == "" || strings.Contains(text, "/") {
		if conditional {
			return mention + " (if deployed)"
		}
		return mention
	}
	if conditional {
		return fmt.Sprintf("%s (see %s, if deployed)", text, mention)
	}
	return fmt.Sprintf("%s (see %s)", text, mention)
}

// rewriteMetadata rewrites dependency values in the merged metadata. Values
// taken from the sibling file are recorded as references; header values were
// already recorded while scanning the primary document.
func (r *Rewriter) rewriteMetadata(pkg *skilldeploy.Package, res *Result) {
	res.Metadata = metadata.Merge(pkg.Metadata, nil)

	var sibling metadata.Attributes
	if pkg.MetadataFile != nil {
		sibling, _ = metadata.ParseJSON(pkg.MetadataFile.Content, pkg.MetadataFile.RelativePath)
	}

	for _, key := range metadata.DependencyKeys {
		raw, ok := res.Metadata[key]
		if !ok {
			continue
		}
		_, fromSibling := sibling[key]

		values, err := metadata.StringList(raw)
		if err != nil {
			continue
		}

		changed := false
		out := make([]string, len(values))
		for i, v := range values {
			out[i] = v
			d, ok := r.resolve(pkg, r.primaryDocument, skilldeploy.FormDependency, v, 0, false)
			if !ok {
				continue
			}
			if fromSibling {
				res.References = append(res.References, skilldeploy.Reference{
					SourcePackage: pkg.DeployedName,
					Artifact:      r.metadataFile,
					Kind:          d.kind,
					Form:          skilldeploy.FormDependency,
					Expression:    v,
					Target:        d.name,
					Resolution:    d.resolution,
				})
				if w, ok := r.warning(pkg, r.metadataFile, 0, skilldeploy.FormDependency, v, d); ok {
					w.Message = fmt.Sprintf("%s (%s)", w.Message, key)
					res.Warnings = append(res.Warnings, w)
				}
			}
			if d.resolution != skilldeploy.ResolutionFlagged && d.name != v {
				out[i] = d.name
				changed = true
			}
		}
		if !changed {
			continue
		}
		if _, isScalar := raw.(string); isScalar {
			res.Metadata[key] = out[0]
		} else {
			list := make([]any, len(out))
			for i, v := range out {
				list[i] = v
			}
			res.Metadata[key] = list
		}
		res.MetadataModified = true
	}
}

func textual(a skilldeploy.Artifact) bool {
	if !textualExtensions[strings.ToLower(path.Ext(a.RelativePath))] {
		return false
	}
	return bytes.IndexByte(a.Content, 0) < 0
}

// upPrefix climbs from an artifact's directory to the target root.
func upPrefix(artifact string) string {
	return strings.Repeat("../", strings.Count(artifact, "/")+1)
}

// splitSuffix separates a path from its query and fragment.
func splitSuffix(expr string) (string, string) {
	if i := strings.IndexAny(expr, "?#"); i >= 0 {
		return expr[:i], expr[i:]
	}
	return expr, ""
}

func lineAt(content []byte, end int) []byte {
	start := bytes.LastIndexByte(content[:end], '\n') + 1
	return content[start:end]
}

func applyEdits(content []byte, edits []edit) []byte {
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].start > edits[j].start })
	out := append([]byte(nil), content...)
	for _, e := range edits {
		var buf bytes.Buffer
		buf.Grow(len(out) - (e.end - e.start) + len(e.text))
		buf.Write(out[:e.start])
		buf.WriteString(e.text)
		buf.Write(out[e.end:])
		out = buf.Bytes()
	}
	return out
}
