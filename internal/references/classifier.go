package references

import "github.com/vvka-141/skilldeploy/pkg/skilldeploy"

// Candidate is a detected path expression offered to a Classifier.
type Candidate struct {
	Form       skilldeploy.RefForm
	Expression string
	Artifact   string
	Line       int

	// InCode is set when the expression sits inside an inline code span
	InCode bool
}

// Classifier decides whether a reference is hard or soft.
type Classifier interface {
	Classify(c Candidate) skilldeploy.RefKind
}

// DefaultClassifier treats hyperlink targets, reference definitions and
// dependency list entries as hard, and everything else as soft.
type DefaultClassifier struct{}

var _ Classifier = DefaultClassifier{}

func (DefaultClassifier) Classify(c Candidate) skilldeploy.RefKind {
	switch c.Form {
	case skilldeploy.FormLink, skilldeploy.FormDefinition, skilldeploy.FormDependency:
		return skilldeploy.RefHard
	default:
		return skilldeploy.RefSoft
	}
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(c Candidate) skilldeploy.RefKind

func (f ClassifierFunc) Classify(c Candidate) skilldeploy.RefKind { return f(c) }
