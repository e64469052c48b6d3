// Package bayes implements a multinomial Naive Bayes bag-of-words classifier.
//
// It is the statistical fallback for the relevance filter: trained offline
// from the full outcome history, it bootstraps filtering before enough
// labeled examples accumulate for embedding-based scoring. Training on the
// same corpus twice yields the same decision boundary.
package bayes

import (
	"math"
	"regexp"
	"strings"
)

var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Model holds token counts and priors for the two classes.
type Model struct {
	positiveTokens map[string]int
	negativeTokens map[string]int
	positiveTotal  int
	negativeTotal  int
	positiveDocs   int
	negativeDocs   int
	vocabulary     map[string]struct{}
}

// Train builds a model from labeled documents. labels[i] is true for a
// relevant document. Returns nil when either class is missing; a one-class
// model cannot discriminate and would block or pass everything.
func Train(docs []string, labels []bool) *Model {
	if len(docs) != len(labels) {
		return nil
	}

	m := &Model{
		positiveTokens: make(map[string]int),
		negativeTokens: make(map[string]int),
		vocabulary:     make(map[string]struct{}),
	}

	for i, doc := range docs {
		tokens := tokenize(doc)

		if labels[i] {
			m.positiveDocs++
		} else {
			m.negativeDocs++
		}

		for _, tok := range tokens {
			m.vocabulary[tok] = struct{}{}

			if labels[i] {
				m.positiveTokens[tok]++
				m.positiveTotal++
			} else {
				m.negativeTokens[tok]++
				m.negativeTotal++
			}
		}
	}

	if m.positiveDocs == 0 || m.negativeDocs == 0 {
		return nil
	}

	return m
}

// Predict returns the probability in [0,1] that text belongs to the relevant
// class. Unknown tokens are ignored; an empty or fully-unknown input falls
// back to the class priors.
func (m *Model) Predict(text string) float64 {
	totalDocs := float64(m.positiveDocs + m.negativeDocs)
	logPos := math.Log(float64(m.positiveDocs) / totalDocs)
	logNeg := math.Log(float64(m.negativeDocs) / totalDocs)

	vocabSize := float64(len(m.vocabulary))

	for _, tok := range tokenize(text) {
		if _, known := m.vocabulary[tok]; !known {
			continue
		}

		// Laplace smoothing keeps unseen-in-class tokens from zeroing out.
		logPos += math.Log((float64(m.positiveTokens[tok]) + 1) / (float64(m.positiveTotal) + vocabSize))
		logNeg += math.Log((float64(m.negativeTokens[tok]) + 1) / (float64(m.negativeTotal) + vocabSize))
	}

	// Normalize in log space to avoid underflow on long documents.
	maxLog := logPos
	if logNeg > maxLog {
		maxLog = logNeg
	}

	pos := math.Exp(logPos - maxLog)
	neg := math.Exp(logNeg - maxLog)

	return pos / (pos + neg)
}

func tokenize(text string) []string {
	return tokenRegex.FindAllString(strings.ToLower(text), -1)
}
