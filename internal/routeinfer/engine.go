// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package routeinfer

import (
	"sort"
	"time"

	"github.com/meshrank/meshrank/internal/model"
)

// maxCandidatesPerToken bounds the Viterbi state space: 25 candidates per
// position keeps the worst case at 25*25*L transitions.
const maxCandidatesPerToken = 25

// diagnosticsPerToken is how many scored candidates are kept per position
// in the returned diagnostics, regardless of how many entered the sweep.
const diagnosticsPerToken = 5

// CandidateFunc maps one path token to its ordered candidate full-pub
// nodes. The route engine truncates the result to the top 25 by emission
// before running Viterbi; callers may return more or fewer.
type CandidateFunc func(token string) []Candidate

// EdgePriorFunc returns the number of previously observed prev->next
// transitions, used as a mild prior favoring known relay pairs.
type EdgePriorFunc func(prevPub, nextPub string) int64

// Input is everything one Viterbi sweep needs.
type Input struct {
	Tokens         []string
	ObserverHome   *GPSPoint
	CandidatesFor  CandidateFunc
	EdgePrior      EdgePriorFunc
	Weights        Weights
	Now            time.Time
}

// Infer runs the Viterbi sweep described in the route inference engine
// design. A nil *model.Route is returned only for an empty token list.
func Infer(in Input) *model.Route {
	if len(in.Tokens) == 0 {
		return nil
	}
	if in.Now.IsZero() {
		in.Now = time.Now()
	}

	positions := make([][]scoredCand, len(in.Tokens))
	diagnostics := make([]model.TokenDiagnostic, len(in.Tokens))
	anyZeroCandidates := false

	for i, tok := range in.Tokens {
		cands := in.CandidatesFor(tok)
		scored := make([]scoredCand, 0, len(cands))
		for _, c := range cands {
			scored = append(scored, scoredCand{cand: c, emission: emission(c, in.ObserverHome, in.Weights, in.Now)})
		}
		sort.Slice(scored, func(a, b int) bool { return scored[a].emission > scored[b].emission })
		if len(scored) > maxCandidatesPerToken {
			scored = scored[:maxCandidatesPerToken]
		}
		positions[i] = scored

		diag := model.TokenDiagnostic{Token: tok}
		if len(scored) == 0 {
			diag.ZeroCandidates = true
			anyZeroCandidates = true
		} else {
			top := scored
			if len(top) > diagnosticsPerToken {
				top = top[:diagnosticsPerToken]
			}
			for _, s := range top {
				diag.TopCandidates = append(diag.TopCandidates, model.ScoredCandidate{Pub: s.cand.Pub, Score: s.emission})
			}
		}
		diagnostics[i] = diag
	}

	route := &model.Route{
		PathTokens:  append([]string(nil), in.Tokens...),
		Diagnostics: diagnostics,
	}

	if anyZeroCandidates {
		route.Unresolved = true
		route.InferredPubs = make([]*string, len(in.Tokens))
		route.HopConfidences = make([]float64, len(in.Tokens))
		return route
	}

	// viterbi[i][j] = best cumulative score ending at candidate j of
	// position i; viterbi2[i][j] = best cumulative score of a *distinct*
	// path ending at candidate j of position i (the list-Viterbi
	// second-best path, not merely the second-best candidate at this
	// position) so route/hop confidence can reflect alternatives that
	// diverge at an interior hop, not just at the final position.
	// backptr[i][j] = index into positions[i-1] of the chosen predecessor.
	viterbi := make([][]float64, len(positions))
	viterbi2 := make([][]float64, len(positions))
	backptr := make([][]int, len(positions))

	viterbi[0] = make([]float64, len(positions[0]))
	viterbi2[0] = make([]float64, len(positions[0]))
	backptr[0] = make([]int, len(positions[0]))
	for j, s := range positions[0] {
		viterbi[0][j] = s.emission
		viterbi2[0][j] = negInf
		backptr[0][j] = -1
	}

	weights := in.Weights
	for i := 1; i < len(positions); i++ {
		viterbi[i] = make([]float64, len(positions[i]))
		viterbi2[i] = make([]float64, len(positions[i]))
		backptr[i] = make([]int, len(positions[i]))
		for j, cand := range positions[i] {
			edge := make([]float64, len(positions[i-1]))
			best, bestScore := -1, negInf
			second := negInf
			for k, prev := range positions[i-1] {
				var edgeCount int64
				if in.EdgePrior != nil {
					edgeCount = in.EdgePrior(prev.cand.Pub, cand.cand.Pub)
				}
				edge[k] = transition(prev.cand, cand.cand, edgeCount, weights) + cand.emission
				score := viterbi[i-1][k] + edge[k]
				if score > bestScore {
					second = bestScore
					best, bestScore = k, score
				} else if score > second {
					second = score
				}
			}
			// The second-best path reaching (i,j) either takes a different
			// predecessor (second, computed above from every k's best path)
			// or takes the second-best path into the same predecessor that
			// the best path uses (viterbi2 at best).
			if viterbi2[i-1][best] != negInf {
				if alt := viterbi2[i-1][best] + edge[best]; alt > second {
					second = alt
				}
			}
			viterbi[i][j] = bestScore
			viterbi2[i][j] = second
			backptr[i][j] = best
		}
	}

	last := len(positions) - 1
	bestJ, secondJ := topTwoIndices(viterbi[last])

	pubs := make([]*string, len(in.Tokens))
	hopConf := make([]float64, len(in.Tokens))

	bestTotal := viterbi[last][bestJ]
	secondTotal := negInf
	if secondJ >= 0 && viterbi[last][secondJ] > secondTotal {
		secondTotal = viterbi[last][secondJ]
	}
	if viterbi2[last][bestJ] > secondTotal {
		secondTotal = viterbi2[last][bestJ]
	}

	routeMargin := bestTotal
	if secondTotal != negInf {
		routeMargin = bestTotal - secondTotal
	}

	j := bestJ
	for i := last; i >= 0; i-- {
		pub := positions[i][j].cand.Pub
		pubs[i] = &pub
		if len(positions[i]) > 1 {
			hopConf[i] = logistic(hopMargin(viterbi[i]))
		} else {
			// A single candidate at this hop offers no local alternative;
			// fall back to whether the route as a whole has one.
			hopConf[i] = logistic(routeMargin)
		}
		if i > 0 {
			j = backptr[i][j]
		}
	}

	route.InferredPubs = pubs
	route.HopConfidences = hopConf
	route.RouteConfidence = logistic(routeMargin)
	route.TeleportMaxKm = teleportMaxKm(positions, pubs)

	unresolved := route.RouteConfidence < weights.RouteConfThreshold
	for _, c := range hopConf {
		if c < weights.HopConfThreshold {
			unresolved = true
		}
	}
	route.Unresolved = unresolved

	return route
}

type scoredCand struct {
	cand     Candidate
	emission float64
}

// hopMargin is the logistic input for per-hop confidence: the score margin
// between the best and second-best candidate's cumulative score at that
// position.
func hopMargin(scores []float64) float64 {
	best, second := topTwo(scores)
	if second == negInf {
		return best
	}
	return best - second
}

const negInf = -1e18

func topTwo(scores []float64) (best, second float64) {
	best, second = negInf, negInf
	for _, s := range scores {
		if s > best {
			second = best
			best = s
		} else if s > second {
			second = s
		}
	}
	return
}

func topTwoIndices(scores []float64) (bestIdx, secondIdx int) {
	bestIdx, secondIdx = -1, -1
	best, second := negInf, negInf
	for i, s := range scores {
		if s > best {
			second, secondIdx = best, bestIdx
			best, bestIdx = s, i
		} else if s > second {
			second, secondIdx = s, i
		}
	}
	return
}

func teleportMaxKm(positions [][]scoredCand, pubs []*string) float64 {
	maxKm := 0.0
	byPub := map[string]Candidate{}
	for _, pos := range positions {
		for _, s := range pos {
			byPub[s.cand.Pub] = s.cand
		}
	}
	var prev *Candidate
	for _, p := range pubs {
		if p == nil {
			continue
		}
		c, ok := byPub[*p]
		if !ok || c.GPS == nil {
			prev = nil
			continue
		}
		if prev != nil && prev.GPS != nil {
			d := haversineKm(prev.GPS.Lat, prev.GPS.Lon, c.GPS.Lat, c.GPS.Lon)
			if d > maxKm {
				maxKm = d
			}
		}
		cc := c
		prev = &cc
	}
	return maxKm
}
