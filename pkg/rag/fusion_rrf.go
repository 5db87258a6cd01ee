package rag

import "sort"

// sortHits orders fused hits deterministically. Primary key is the RRF score
// (descending). Ties are broken by: present in both result sets first, then
// better keyword rank, then better vector rank, then chunk ID for stability.
func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]

		as := 0.0
		if a.RrfScore != nil {
			as = *a.RrfScore
		}
		bs := 0.0
		if b.RrfScore != nil {
			bs = *b.RrfScore
		}
		if as != bs {
			return as > bs
		}

		aBoth := a.VectorRank != nil && a.KeywordRank != nil
		bBoth := b.VectorRank != nil && b.KeywordRank != nil
		if aBoth != bBoth {
			return aBoth
		}

		ak := maxInt
		if a.KeywordRank != nil {
			ak = *a.KeywordRank
		}
		bk := maxInt
		if b.KeywordRank != nil {
			bk = *b.KeywordRank
		}
		if ak != bk {
			return ak < bk
		}

		av := maxInt
		if a.VectorRank != nil {
			av = *a.VectorRank
		}
		bv := maxInt
		if b.VectorRank != nil {
			bv = *b.VectorRank
		}
		if av != bv {
			return av < bv
		}

		return a.ChunkID < b.ChunkID
	})
}

const maxInt = int(^uint(0) >> 1)
