package services

import (
	"math"
	"sort"

	"github.com/bugseek/backend/internal/models"
)

const similarityMethodCosine = "cosine"

const sharedKeywordLimit = 10

// SimilarityIndex ranks previously analyzed logs against a target feature
// vector. It holds no state beyond its thresholds; Rank is a pure function
// of its inputs and safe for concurrent calls.
type SimilarityIndex struct {
	threshold float64
	topK      int
}

func NewSimilarityIndex() *SimilarityIndex {
	return &SimilarityIndex{
		threshold: envFloat("SIMILARITY_THRESHOLD", 0.15),
		topK:      envInt("SIMILARITY_TOP_K", 5),
	}
}

// Rank scores every corpus entry against the target by cosine similarity,
// keeps entries at or above the threshold, and returns at most topK matches
// sorted by descending score with ties broken by identifier. An empty target
// or corpus yields an empty result.
func (si *SimilarityIndex) Rank(target models.FeatureVector, corpus map[string]models.FeatureVector) []models.SimilarityMatch {
	if len(target) == 0 || len(corpus) == 0 {
		return nil
	}

	matches := make([]models.SimilarityMatch, 0, len(corpus))
	for crID, vec := range corpus {
		score := cosineSimilarity(target, vec)
		if score < si.threshold {
			continue
		}
		matches = append(matches, models.SimilarityMatch{
			CrID:           crID,
			Score:          score,
			Method:         similarityMethodCosine,
			SharedKeywords: sharedKeywords(target, vec),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].CrID < matches[j].CrID
	})

	if len(matches) > si.topK {
		matches = matches[:si.topK]
	}
	return matches
}

func cosineSimilarity(a, b models.FeatureVector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var dot float64
	for term, wa := range a {
		if wb, ok := b[term]; ok {
			dot += wa * wb
		}
	}
	if dot == 0 {
		return 0
	}

	var normA, normB float64
	for _, w := range a {
		normA += w * w
	}
	for _, w := range b {
		normB += w * w
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// sharedKeywords lists terms present in both vectors, strongest (by target
// weight) first, alphabetical on ties.
func sharedKeywords(target, other models.FeatureVector) []string {
	var shared []string
	for term := range target {
		if _, ok := other[term]; ok {
			shared = append(shared, term)
		}
	}
	sort.Slice(shared, func(i, j int) bool {
		if target[shared[i]] != target[shared[j]] {
			return target[shared[i]] > target[shared[j]]
		}
		return shared[i] < shared[j]
	})
	if len(shared) > sharedKeywordLimit {
		shared = shared[:sharedKeywordLimit]
	}
	return shared
}
