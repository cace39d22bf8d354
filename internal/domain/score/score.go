// Package score computes the engagement score stored on every document.
package score

import "math"

// Func computes a score from likes, comments and combined shares.
type Func func(likes, comments, shares int64) float64

// Weights applied to the log-damped interaction counts.
const (
	LikeWeight    = 1.0
	CommentWeight = 2.0
	ShareWeight   = 3.0
)

// Calculate is the default Func. It is deterministic and defined for all
// non-negative inputs; negative inputs are clamped to zero.
func Calculate(likes, comments, shares int64) float64 {
	s := LikeWeight*damp(likes) + CommentWeight*damp(comments) + ShareWeight*damp(shares)
	return math.Round(s*1e4) / 1e4
}

func damp(n int64) float64 {
	if n <= 0 {
		return 0
	}
	return math.Log1p(float64(n))
}
