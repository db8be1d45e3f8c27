package fusion

import (
	"sort"

	"github.com/arthurkushman/go-hungarian"
)

// MatchingAlgorithm is for algorithm type for matching previous regions to current ones
type MatchingAlgorithm uint16

const (
	// MatchingAlgorithmGreedy picks for every previous region the current region with most votes
	MatchingAlgorithmGreedy MatchingAlgorithm = iota
	// MatchingAlgorithmHungarian picks one-to-one assignment with the most total votes (Kuhn-Munkres)
	MatchingAlgorithmHungarian
)

// DefaultMinSupport is default number of shared correspondences which must be exceeded to accept association
const DefaultMinSupport = 10

// String returns name of the algorithm
func (algorithm MatchingAlgorithm) String() string {
	switch algorithm {
	case MatchingAlgorithmGreedy:
		return "greedy"
	case MatchingAlgorithmHungarian:
		return "hungarian"
	default:
		return "unknown"
	}
}

// regionPair is composite key of previous and current region identifiers
type regionPair struct {
	prev int
	curr int
}

// RegionAssociator matches regions between previous and current frame by keypoint correspondence voting
type RegionAssociator struct {
	// Number of votes which must be exceeded (strictly) for pair to be accepted. Default is 10
	minSupport int
	// Algorithm to use for matching
	algorithm MatchingAlgorithm
}

// NewDefaultRegionAssociator creates default instance of RegionAssociator.
// Default values: minSupport=10, algorithm=MatchingAlgorithmGreedy
func NewDefaultRegionAssociator() *RegionAssociator {
	return &RegionAssociator{
		minSupport: DefaultMinSupport,
		algorithm:  MatchingAlgorithmGreedy,
	}
}

// NewRegionAssociator creates a new instance of RegionAssociator with specified parameters.
func NewRegionAssociator(minSupport int, algorithm MatchingAlgorithm) *RegionAssociator {
	return &RegionAssociator{
		minSupport: minSupport,
		algorithm:  algorithm,
	}
}

// MatchRegions returns mapping from previous region ID to current region ID.
// matches index prevFrame.Keypoints (PrevIdx) and currFrame.Keypoints (CurrIdx).
// Pairs without enough votes are absent from the mapping.
func (associator *RegionAssociator) MatchRegions(matches []Correspondence, prevFrame, currFrame *Frame) map[int]int {
	votes := countVotes(matches, prevFrame, currFrame)
	switch associator.algorithm {
	case MatchingAlgorithmHungarian:
		return associator.matchHungarian(votes)
	default:
		return associator.matchGreedy(votes)
	}
}

// countVotes counts correspondences for every (previous region, current region) pair.
// Regions may overlap, so single correspondence votes for every pair of the cross product.
func countVotes(matches []Correspondence, prevFrame, currFrame *Frame) map[regionPair]int {
	votes := make(map[regionPair]int)
	skipped := 0
	for _, match := range matches {
		if match.PrevIdx < 0 || match.PrevIdx >= len(prevFrame.Keypoints) || match.CurrIdx < 0 || match.CurrIdx >= len(currFrame.Keypoints) {
			skipped++
			continue
		}
		prevIDs := enclosingRegionIDs(prevFrame.Regions, prevFrame.Keypoints[match.PrevIdx].Pt)
		if len(prevIDs) == 0 {
			continue
		}
		currIDs := enclosingRegionIDs(currFrame.Regions, currFrame.Keypoints[match.CurrIdx].Pt)
		for _, prevID := range prevIDs {
			for _, currID := range currIDs {
				votes[regionPair{prev: prevID, curr: currID}]++
			}
		}
	}
	if skipped > 0 {
		logger.Warn("fusion: skipped correspondences with out-of-range keypoint index", "count", skipped)
	}
	return votes
}

// sortedPairs returns vote keys ordered by previous ID then current ID
func sortedPairs(votes map[regionPair]int) []regionPair {
	pairs := make([]regionPair, 0, len(votes))
	for pair := range votes {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].prev != pairs[j].prev {
			return pairs[i].prev < pairs[j].prev
		}
		return pairs[i].curr < pairs[j].curr
	})
	return pairs
}

// matchGreedy picks the current region with strictly greatest vote count for every previous region.
// Pairs are visited in ascending (prev, curr) order, so ties go to the smallest current ID.
func (associator *RegionAssociator) matchGreedy(votes map[regionPair]int) map[int]int {
	type best struct {
		count  int
		currID int
	}
	bestMatches := make(map[int]best)
	for _, pair := range sortedPairs(votes) {
		count := votes[pair]
		if current, ok := bestMatches[pair.prev]; !ok || count > current.count {
			bestMatches[pair.prev] = best{count: count, currID: pair.curr}
		}
	}
	result := make(map[int]int)
	for prevID, match := range bestMatches {
		if match.count > associator.minSupport {
			result[prevID] = match.currID
		}
	}
	return result
}

// matchHungarian solves one-to-one assignment on vote matrix (rows = previous regions, columns = current regions)
// maximizing total votes. Accepted pairs still need more than minSupport votes.
func (associator *RegionAssociator) matchHungarian(votes map[regionPair]int) map[int]int {
	result := make(map[int]int)
	if len(votes) == 0 {
		return result
	}
	prevIndex := make(map[int]int)
	currIndex := make(map[int]int)
	prevIDs := make([]int, 0)
	currIDs := make([]int, 0)
	for _, pair := range sortedPairs(votes) {
		if _, ok := prevIndex[pair.prev]; !ok {
			prevIndex[pair.prev] = len(prevIDs)
			prevIDs = append(prevIDs, pair.prev)
		}
		if _, ok := currIndex[pair.curr]; !ok {
			currIndex[pair.curr] = len(currIDs)
			currIDs = append(currIDs, pair.curr)
		}
	}
	// Pad to square matrix with zero votes
	size := maxInt(len(prevIDs), len(currIDs))
	matrix := make([][]float64, size)
	for i := range matrix {
		matrix[i] = make([]float64, size)
	}
	for pair, count := range votes {
		matrix[prevIndex[pair.prev]][currIndex[pair.curr]] = float64(count)
	}
	rowAssign := hungarianAssignment(matrix)
	for row, col := range rowAssign {
		if row >= len(prevIDs) || col >= len(currIDs) {
			continue
		}
		pair := regionPair{prev: prevIDs[row], curr: currIDs[col]}
		if votes[pair] > associator.minSupport {
			result[pair.prev] = pair.curr
		}
	}
	return result
}

// hungarianAssignment takes hungarian.SolveMax answer when it is a complete matching with optimal total votes.
// SolveMax may return partial or suboptimal matching, exact Kuhn-Munkres answer is used then.
func hungarianAssignment(matrix [][]float64) []int {
	exact := maxAssignment(matrix)
	candidate, ok := completeMatching(hungarian.SolveMax(matrix), len(matrix))
	if ok && assignmentScore(matrix, candidate) >= assignmentScore(matrix, exact) {
		return candidate
	}
	return exact
}

// completeMatching converts SolveMax output to row assignment.
// Returns false unless every row has exactly one column and no column repeats.
func completeMatching(assignments map[int]map[int]float64, size int) ([]int, bool) {
	if len(assignments) != size {
		return nil, false
	}
	rowAssign := make([]int, size)
	usedCols := make(map[int]bool, size)
	for row := 0; row < size; row++ {
		rowMap, ok := assignments[row]
		if !ok || len(rowMap) != 1 {
			return nil, false
		}
		for col := range rowMap {
			if col < 0 || col >= size || usedCols[col] {
				return nil, false
			}
			usedCols[col] = true
			rowAssign[row] = col
		}
	}
	return rowAssign, true
}
