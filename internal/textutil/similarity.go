package textutil

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	score := dot / (a.norm * b.norm)
	if score > 1 {
		return 1
	}
	return score
}

// Match identifies the candidate closest to a draft.
type Match struct {
	Index int
	Score float64
}

// MostSimilar compares text against candidates using IDF weights drawn from
// the candidates plus text. It returns Index -1 when no candidate shares a
// token with text.
func MostSimilar(text string, candidates []string) Match {
	best := Match{Index: -1}
	target := NewFingerprint(text)
	if target == nil || len(candidates) == 0 {
		return best
	}

	corpus := NewCorpus()
	corpus.Add(target)
	prints := make([]*Fingerprint, len(candidates))
	for i, candidate := range candidates {
		prints[i] = NewFingerprint(candidate)
		corpus.Add(prints[i])
	}
	idf := corpus.IDF()
	weighted := target.WithIDF(idf)

	for i, fp := range prints {
		score := CosineSimilarity(weighted, fp.WithIDF(idf))
		if score > best.Score {
			best = Match{Index: i, Score: score}
		}
	}
	return best
}
