// Package triage turns free text into an intent label. The rest of the system
// sees only the Classifier interface; the bundled implementation is a linear
// TF-IDF model fitted on the dataset's intent patterns at startup.
package triage

import (
	"errors"
	"fmt"
	"math"

	"github.com/medbot/medbot/internal/dataset"
)

// Label identifies an intent. Symptom labels are the subset listed in the
// dataset's symptom set.
type Label string

// Unknown is returned when no intent scores above the confidence floor.
const Unknown Label = dataset.ReservedTag

var ErrNoTrainingData = errors.New("no training patterns")

type Classifier interface {
	Classify(text string) Label
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(text string) Label

func (f ClassifierFunc) Classify(text string) Label { return f(text) }

// Prediction is a label with its cosine score against the label centroid.
type Prediction struct {
	Label Label
	Score float64
}

type vector map[string]float64

// TFIDFClassifier scores text against one L2-normalized TF-IDF centroid per
// intent. Ties resolve to the intent listed first in the dataset.
type TFIDFClassifier struct {
	labels    []Label
	centroids []vector
	idf       map[string]float64
	minScore  float64
}

// NewTFIDFClassifier fits the model on the intents' patterns. minScore is the
// floor below which Classify reports Unknown.
func NewTFIDFClassifier(intents []dataset.Intent, minScore float64) (*TFIDFClassifier, error) {
	var docs int
	df := make(map[string]int)
	tokenized := make([][][]string, len(intents))
	for i, in := range intents {
		for _, p := range in.Patterns {
			tokens := Tokenize(p)
			if len(tokens) == 0 {
				continue
			}
			tokenized[i] = append(tokenized[i], tokens)
			docs++
			seen := make(map[string]bool, len(tokens))
			for _, tok := range tokens {
				if !seen[tok] {
					seen[tok] = true
					df[tok]++
				}
			}
		}
	}
	if docs == 0 {
		return nil, ErrNoTrainingData
	}

	// Smoothed idf, as in scikit-learn's TfidfVectorizer.
	idf := make(map[string]float64, len(df))
	for tok, n := range df {
		idf[tok] = math.Log(float64(1+docs)/float64(1+n)) + 1
	}

	c := &TFIDFClassifier{idf: idf, minScore: minScore}
	for i, in := range intents {
		if len(tokenized[i]) == 0 {
			return nil, fmt.Errorf("intent %q: %w", in.Tag, ErrNoTrainingData)
		}
		centroid := make(vector)
		for _, tokens := range tokenized[i] {
			for tok, w := range c.vectorize(tokens) {
				centroid[tok] += w
			}
		}
		normalize(centroid)
		c.labels = append(c.labels, Label(in.Tag))
		c.centroids = append(c.centroids, centroid)
	}
	return c, nil
}

// Classify returns the best scoring label, or Unknown.
func (c *TFIDFClassifier) Classify(text string) Label {
	p := c.Predict(text)
	if p.Score < c.minScore || p.Score == 0 {
		return Unknown
	}
	return p.Label
}

// Predict returns the best label and its score without applying the floor.
func (c *TFIDFClassifier) Predict(text string) Prediction {
	q := c.vectorize(Tokenize(text))
	best := Prediction{Label: Unknown}
	if len(q) == 0 {
		return best
	}
	for i, centroid := range c.centroids {
		if s := dot(q, centroid); s > best.Score {
			best = Prediction{Label: c.labels[i], Score: s}
		}
	}
	return best
}

// Labels lists the labels the model was fitted on, in dataset order.
func (c *TFIDFClassifier) Labels() []Label {
	out := make([]Label, len(c.labels))
	copy(out, c.labels)
	return out
}

func (c *TFIDFClassifier) vectorize(tokens []string) vector {
	v := make(vector, len(tokens))
	for _, tok := range tokens {
		if w, ok := c.idf[tok]; ok {
			v[tok] += w
		}
	}
	normalize(v)
	return v
}

func normalize(v vector) {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	if sum == 0 {
		return
	}
	n := math.Sqrt(sum)
	for k := range v {
		v[k] /= n
	}
}

func dot(a, b vector) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var s float64
	for k, w := range a {
		s += w * b[k]
	}
	return s
}
