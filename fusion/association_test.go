package fusion

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// votingFrames builds previous and current frames and correspondences from a list of votes.
// Each vote places previous keypoint at prevAt and current keypoint at currAt.
type vote struct {
	prevAt Point
	currAt Point
	times  int
}

func votingFrames(prevRegions, currRegions []*DetectionRegion, votes []vote) (*Frame, *Frame, []Correspondence) {
	prev := &Frame{Regions: prevRegions}
	curr := &Frame{Regions: currRegions}
	matches := make([]Correspondence, 0)
	for _, v := range votes {
		for i := 0; i < v.times; i++ {
			prev.Keypoints = append(prev.Keypoints, Keypoint{Pt: v.prevAt})
			curr.Keypoints = append(curr.Keypoints, Keypoint{Pt: v.currAt})
			matches = append(matches, Correspondence{PrevIdx: len(prev.Keypoints) - 1, CurrIdx: len(curr.Keypoints) - 1})
		}
	}
	return prev, curr, matches
}

func TestMatchRegionsMajority(t *testing.T) {
	prevRegions := []*DetectionRegion{NewDetectionRegion(1, NewRect(0, 0, 100, 100))}
	currRegions := []*DetectionRegion{
		NewDetectionRegion(2, NewRect(0, 0, 100, 100)),
		NewDetectionRegion(3, NewRect(200, 0, 100, 100)),
	}
	prev, curr, matches := votingFrames(prevRegions, currRegions, []vote{
		{prevAt: Point{X: 50, Y: 50}, currAt: Point{X: 55, Y: 50}, times: 15},
		{prevAt: Point{X: 50, Y: 50}, currAt: Point{X: 250, Y: 50}, times: 5},
	})
	got := NewDefaultRegionAssociator().MatchRegions(matches, prev, curr)
	if diff := cmp.Diff(map[int]int{1: 2}, got); diff != "" {
		t.Errorf("Wrong mapping (-want +got):\n%s", diff)
	}
}

func TestMatchRegionsSupportThreshold(t *testing.T) {
	prevRegions := []*DetectionRegion{NewDetectionRegion(1, NewRect(0, 0, 100, 100))}
	currRegions := []*DetectionRegion{NewDetectionRegion(2, NewRect(0, 0, 100, 100))}

	prev, curr, matches := votingFrames(prevRegions, currRegions, []vote{
		{prevAt: Point{X: 50, Y: 50}, currAt: Point{X: 50, Y: 50}, times: 10},
	})
	got := NewDefaultRegionAssociator().MatchRegions(matches, prev, curr)
	if diff := cmp.Diff(map[int]int{}, got); diff != "" {
		t.Errorf("Exactly 10 votes must be rejected (-want +got):\n%s", diff)
	}

	prev, curr, matches = votingFrames(prevRegions, currRegions, []vote{
		{prevAt: Point{X: 50, Y: 50}, currAt: Point{X: 50, Y: 50}, times: 11},
	})
	got = NewDefaultRegionAssociator().MatchRegions(matches, prev, curr)
	if diff := cmp.Diff(map[int]int{1: 2}, got); diff != "" {
		t.Errorf("11 votes must be accepted (-want +got):\n%s", diff)
	}
}

func TestMatchRegionsOverlappingRegions(t *testing.T) {
	// Current regions 4 and 5 overlap: keypoints inside both vote for both
	prevRegions := []*DetectionRegion{NewDetectionRegion(1, NewRect(0, 0, 100, 100))}
	currRegions := []*DetectionRegion{
		NewDetectionRegion(5, NewRect(0, 0, 100, 100)),
		NewDetectionRegion(4, NewRect(50, 0, 100, 100)),
	}
	prev, curr, matches := votingFrames(prevRegions, currRegions, []vote{
		{prevAt: Point{X: 50, Y: 50}, currAt: Point{X: 75, Y: 50}, times: 12},
	})
	votes := countVotes(matches, prev, curr)
	if diff := cmp.Diff(map[regionPair]int{{prev: 1, curr: 4}: 12, {prev: 1, curr: 5}: 12}, votes, cmp.AllowUnexported(regionPair{})); diff != "" {
		t.Errorf("Wrong votes (-want +got):\n%s", diff)
	}
	// Tie goes to the smallest current ID
	got := NewDefaultRegionAssociator().MatchRegions(matches, prev, curr)
	if diff := cmp.Diff(map[int]int{1: 4}, got); diff != "" {
		t.Errorf("Wrong mapping (-want +got):\n%s", diff)
	}
}

func TestMatchRegionsIgnoresKeypointsOutsideRegions(t *testing.T) {
	prevRegions := []*DetectionRegion{NewDetectionRegion(1, NewRect(0, 0, 100, 100))}
	currRegions := []*DetectionRegion{NewDetectionRegion(2, NewRect(0, 0, 100, 100))}
	prev, curr, matches := votingFrames(prevRegions, currRegions, []vote{
		{prevAt: Point{X: 150, Y: 50}, currAt: Point{X: 50, Y: 50}, times: 20},
		{prevAt: Point{X: 50, Y: 50}, currAt: Point{X: 150, Y: 50}, times: 20},
	})
	matches = append(matches, Correspondence{PrevIdx: 1000, CurrIdx: 0})
	got := NewDefaultRegionAssociator().MatchRegions(matches, prev, curr)
	if len(got) != 0 {
		t.Errorf("Expected empty mapping, got %v", got)
	}
}

func TestMatchRegionsHungarian(t *testing.T) {
	prevRegions := []*DetectionRegion{
		NewDetectionRegion(1, NewRect(0, 0, 100, 100)),
		NewDetectionRegion(2, NewRect(200, 0, 100, 100)),
	}
	currRegions := []*DetectionRegion{
		NewDetectionRegion(5, NewRect(0, 0, 100, 100)),
		NewDetectionRegion(6, NewRect(200, 0, 100, 100)),
	}
	prev, curr, matches := votingFrames(prevRegions, currRegions, []vote{
		{prevAt: Point{X: 50, Y: 50}, currAt: Point{X: 50, Y: 50}, times: 20},
		{prevAt: Point{X: 50, Y: 50}, currAt: Point{X: 250, Y: 50}, times: 15},
		{prevAt: Point{X: 250, Y: 50}, currAt: Point{X: 50, Y: 50}, times: 18},
		{prevAt: Point{X: 250, Y: 50}, currAt: Point{X: 250, Y: 50}, times: 1},
	})

	greedy := NewDefaultRegionAssociator().MatchRegions(matches, prev, curr)
	if diff := cmp.Diff(map[int]int{1: 5, 2: 5}, greedy); diff != "" {
		t.Errorf("Wrong greedy mapping (-want +got):\n%s", diff)
	}

	// One-to-one: 15 + 18 = 33 votes beats 20 + 1 = 21
	hungarianAssociator := NewRegionAssociator(DefaultMinSupport, MatchingAlgorithmHungarian)
	oneToOne := hungarianAssociator.MatchRegions(matches, prev, curr)
	if diff := cmp.Diff(map[int]int{1: 6, 2: 5}, oneToOne); diff != "" {
		t.Errorf("Wrong Hungarian mapping (-want +got):\n%s", diff)
	}
}

func TestHungarianAssignmentOptimal(t *testing.T) {
	votes := [][]float64{
		{20, 15},
		{18, 1},
	}
	got := hungarianAssignment(votes)
	if diff := cmp.Diff([]int{1, 0}, got); diff != "" {
		t.Errorf("Wrong assignment (-want +got):\n%s", diff)
	}
	if total := assignmentScore(votes, got); total != 33 {
		t.Errorf("Wrong total votes: %v, correct answer: %v", total, 33)
	}

	// Classic 3x3 minimum cost problem: optimal total is 1 + 4 + 5 = 10
	cost := [][]float64{
		{1, 2, 3},
		{4, 4, 6},
		{9, 8, 5},
	}
	minCost := solveAssignment(cost)
	if total := assignmentScore(cost, minCost); total != 10 {
		t.Errorf("Wrong minimal cost: %v (assignment %v), correct answer: %v", total, minCost, 10)
	}

	// Padded rows and columns with zero votes
	padded := [][]float64{
		{0, 12, 0},
		{11, 20, 0},
		{0, 0, 0},
	}
	got = hungarianAssignment(padded)
	if total := assignmentScore(padded, got); total != 23 {
		t.Errorf("Wrong total votes: %v (assignment %v), correct answer: %v", total, got, 23)
	}

	if solveAssignment(nil) != nil {
		t.Error("Empty matrix should give nil assignment")
	}
}

func TestCompleteMatching(t *testing.T) {
	rowAssign, ok := completeMatching(map[int]map[int]float64{0: {1: 15}, 1: {0: 18}}, 2)
	if !ok {
		t.Fatal("Expected complete matching")
	}
	if diff := cmp.Diff([]int{1, 0}, rowAssign); diff != "" {
		t.Errorf("Wrong assignment (-want +got):\n%s", diff)
	}
	if _, ok := completeMatching(map[int]map[int]float64{0: {0: 0}}, 2); ok {
		t.Error("Missing row must not be a complete matching")
	}
	if _, ok := completeMatching(map[int]map[int]float64{0: {0: 20}, 1: {0: 18}}, 2); ok {
		t.Error("Repeated column must not be a complete matching")
	}
}

func TestMatchingAlgorithmString(t *testing.T) {
	if MatchingAlgorithmGreedy.String() != "greedy" || MatchingAlgorithmHungarian.String() != "hungarian" {
		t.Errorf("Wrong algorithm names: %s, %s", MatchingAlgorithmGreedy, MatchingAlgorithmHungarian)
	}
}
