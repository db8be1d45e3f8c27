package fusion

import "math"

// solveAssignment returns optimal (minimum total cost) assignment for square cost matrix:
// rowAssign[i] is column assigned to row i.
// Kuhn-Munkres with row/column potentials, O(n^3).
func solveAssignment(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	inf := math.Inf(1)
	// 1-indexed, column 0 is virtual
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)
	minv := make([]float64, n+1)
	used := make([]bool, n+1)
	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		for j := 0; j <= n; j++ {
			minv[j] = inf
			used[j] = false
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		// Augment along the path
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}
	rowAssign := make([]int, n)
	for j := 1; j <= n; j++ {
		rowAssign[p[j]-1] = j - 1
	}
	return rowAssign
}

// maxAssignment returns assignment maximizing total score on square score matrix
func maxAssignment(score [][]float64) []int {
	top := 0.0
	for i := range score {
		for j := range score[i] {
			top = maxFloat64(top, score[i][j])
		}
	}
	cost := make([][]float64, len(score))
	for i := range score {
		cost[i] = make([]float64, len(score[i]))
		for j := range score[i] {
			cost[i][j] = top - score[i][j]
		}
	}
	return solveAssignment(cost)
}

// assignmentScore sums score over assignment
func assignmentScore(score [][]float64, rowAssign []int) float64 {
	total := 0.0
	for row, col := range rowAssign {
		total += score[row][col]
	}
	return total
}
