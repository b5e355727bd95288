// Package pipeline wires the feature builder, the cross-validated path
// trainer, the evaluator and the uncertainty sampler into repeatable
// active-learning rounds over a document pool.
package pipeline

import (
	"github.com/blakeapm/textlearn/pkg/errors"
)

// Document is an unlabeled comment.
type Document struct {
	ID   int
	Text string
}

// LabeledDocument is a comment with a binary label in {0, 1}.
type LabeledDocument struct {
	Document
	Label int
}

// Pool partitions the corpus into labeled and unlabeled documents once, at
// construction time, instead of checking for a missing label throughout the
// pipeline. Rounds treat a Pool as immutable; ApplyLabels returns a new one.
type Pool struct {
	Labeled   []LabeledDocument
	Unlabeled []Document
}

// NewPool builds a pool, rejecting labels outside {0, 1} and duplicate IDs.
func NewPool(labeled []LabeledDocument, unlabeled []Document) (Pool, error) {
	seen := make(map[int]struct{}, len(labeled)+len(unlabeled))
	for _, d := range labeled {
		if d.Label != 0 && d.Label != 1 {
			return Pool{}, errors.NewValidationError("label", "must be 0 or 1", d.Label)
		}
		if _, dup := seen[d.ID]; dup {
			return Pool{}, errors.NewValidationError("id", "duplicate document id", d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	for _, d := range unlabeled {
		if _, dup := seen[d.ID]; dup {
			return Pool{}, errors.NewValidationError("id", "duplicate document id", d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return Pool{Labeled: labeled, Unlabeled: unlabeled}, nil
}

// Corpus returns all document texts, labeled first then unlabeled, in pool
// order. The vocabulary for a round is built over this full corpus.
func (p Pool) Corpus() []string {
	out := make([]string, 0, len(p.Labeled)+len(p.Unlabeled))
	for _, d := range p.Labeled {
		out = append(out, d.Text)
	}
	for _, d := range p.Unlabeled {
		out = append(out, d.Text)
	}
	return out
}

// ApplyLabels returns a new pool with the identified unlabeled documents
// moved into the labeled set. Every key must name a currently unlabeled
// document and every label must be 0 or 1; the receiver is not modified.
func (p Pool) ApplyLabels(labels map[int]int) (Pool, error) {
	for id, label := range labels {
		if label != 0 && label != 1 {
			return Pool{}, errors.NewValidationError("label", "must be 0 or 1", label)
		}
		found := false
		for _, d := range p.Unlabeled {
			if d.ID == id {
				found = true
				break
			}
		}
		if !found {
			return Pool{}, errors.NewValidationError("id", "not in the unlabeled pool", id)
		}
	}

	labeled := make([]LabeledDocument, len(p.Labeled), len(p.Labeled)+len(labels))
	copy(labeled, p.Labeled)
	unlabeled := make([]Document, 0, len(p.Unlabeled)-len(labels))
	for _, d := range p.Unlabeled {
		if label, ok := labels[d.ID]; ok {
			labeled = append(labeled, LabeledDocument{Document: d, Label: label})
		} else {
			unlabeled = append(unlabeled, d)
		}
	}
	return Pool{Labeled: labeled, Unlabeled: unlabeled}, nil
}
