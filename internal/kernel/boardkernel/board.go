// Package boardkernel is the one concrete implementation of kernel.Kernel
// shipped with this repository (SPEC_FULL.md §6.1.1): a simplified
// Quoridor-style board — race a token to the far edge of an N×N grid, wall
// placements must leave both players a path (checked by BFS reachability) —
// paired with a flat Monte Carlo evaluator. It exists so the rest of the
// system (Search Adapter, Turn Router, Scheduler, Fan-out) is runnable and
// testable without a real native engine; swapping in one means implementing
// kernel.Kernel, nothing else changes.
package boardkernel

import (
	"fmt"
	"math/rand"
)

const (
	// BoardSize is the grid dimension (BoardSize x BoardSize cells).
	BoardSize = 5
	// MaxWallsPerPlayer caps wall placements, matching the spirit of the
	// original game's limited wall supply.
	MaxWallsPerPlayer = 4
)

type cell struct{ x, y int }

type wallOrientation uint8

const (
	horizontal wallOrientation = iota
	vertical
)

type placedWall struct {
	x, y int
	kind wallOrientation
}

// Board is the mutable game state for one session. It is not safe for
// concurrent use — the Search Adapter serializes all access.
type Board struct {
	tokens      [2]cell // index 0 = player 1 (slot index - 1), 1 = player 2
	walls       []placedWall
	wallsPlaced [2]int
	toMove      int // 0 or 1, index into tokens/wallsPlaced
	rng         *rand.Rand
}

// NewBoard returns a Board at the initial position: player 1 on row 0,
// player 2 on row BoardSize-1, both in the middle column, player 1 to move.
func NewBoard(seed int64) *Board {
	mid := BoardSize / 2
	return &Board{
		tokens: [2]cell{
			{x: mid, y: 0},
			{x: mid, y: BoardSize - 1},
		},
		toMove: 0,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Clone deep-copies the board for use inside a rollout without mutating the
// session's real position.
func (b *Board) Clone() *Board {
	cp := &Board{
		tokens:      b.tokens,
		wallsPlaced: b.wallsPlaced,
		toMove:      b.toMove,
		rng:         b.rng,
	}
	cp.walls = make([]placedWall, len(b.walls))
	copy(cp.walls, b.walls)
	return cp
}

func (b *Board) goalRow(player int) int {
	if player == 0 {
		return BoardSize - 1
	}
	return 0
}

func inBounds(c cell) bool {
	return c.x >= 0 && c.x < BoardSize && c.y >= 0 && c.y < BoardSize
}

// blocked reports whether a wall segment blocks movement directly between
// two orthogonally adjacent cells.
func (b *Board) blocked(a, c cell) bool {
	for _, w := range b.walls {
		switch w.kind {
		case horizontal:
			// Blocks vertical movement between row w.y/w.y+1 for columns w.x, w.x+1.
			if a.x == c.x && absDiff(a.y, c.y) == 1 {
				lo := min(a.y, c.y)
				if lo == w.y && (a.x == w.x || a.x == w.x+1) {
					return true
				}
			}
		case vertical:
			// Blocks horizontal movement between column w.x/w.x+1 for rows w.y, w.y+1.
			if a.y == c.y && absDiff(a.x, c.x) == 1 {
				lo := min(a.x, c.x)
				if lo == w.x && (a.y == w.y || a.y == w.y+1) {
					return true
				}
			}
		}
	}
	return false
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (b *Board) occupied(c cell) bool {
	return b.tokens[0] == c || b.tokens[1] == c
}

func (b *Board) neighbors(c cell) []cell {
	cand := []cell{{c.x + 1, c.y}, {c.x - 1, c.y}, {c.x, c.y + 1}, {c.x, c.y - 1}}
	out := make([]cell, 0, 4)
	for _, n := range cand {
		if inBounds(n) && !b.blocked(c, n) {
			out = append(out, n)
		}
	}
	return out
}

// legalMoveTargets returns cells the current mover's token may step to.
func (b *Board) legalMoveTargets() []cell {
	from := b.tokens[b.toMove]
	out := make([]cell, 0, 4)
	for _, n := range b.neighbors(from) {
		if !b.occupied(n) {
			out = append(out, n)
		}
	}
	return out
}

// hasPath reports whether player can still reach their goal row via BFS,
// used to reject wall placements that would fully block a player.
func (b *Board) hasPath(player int) bool {
	start := b.tokens[player]
	goal := b.goalRow(player)
	if start.y == goal {
		return true
	}
	visited := map[cell]bool{start: true}
	queue := []cell{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.y == goal {
			return true
		}
		for _, n := range b.neighbors(cur) {
			if !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}
	return false
}

func (b *Board) wallOverlaps(x, y int, kind wallOrientation) bool {
	for _, w := range b.walls {
		if w.kind == kind && w.x == x && w.y == y {
			return true
		}
		// Crossing walls of opposite orientation at the same intersection
		// are also illegal.
		if w.kind != kind && w.x == x && w.y == y {
			return true
		}
	}
	return false
}

// LegalActions returns every action string legal for the current mover,
// in the §6.2 syntax.
func (b *Board) LegalActions() []string {
	var out []string
	for _, t := range b.legalMoveTargets() {
		out = append(out, fmt.Sprintf("*(%d,%d)", t.x, t.y))
	}
	if b.wallsPlaced[b.toMove] < MaxWallsPerPlayer {
		for x := 0; x < BoardSize-1; x++ {
			for y := 0; y < BoardSize-1; y++ {
				if b.wallIsLegal(x, y, horizontal) {
					out = append(out, fmt.Sprintf("H(%d,%d)", x, y))
				}
				if b.wallIsLegal(x, y, vertical) {
					out = append(out, fmt.Sprintf("V(%d,%d)", x, y))
				}
			}
		}
	}
	return out
}

func (b *Board) wallIsLegal(x, y int, kind wallOrientation) bool {
	if b.wallOverlaps(x, y, kind) {
		return false
	}
	b.walls = append(b.walls, placedWall{x: x, y: y, kind: kind})
	ok := b.hasPath(0) && b.hasPath(1)
	b.walls = b.walls[:len(b.walls)-1]
	return ok
}

// Apply commits action for the current mover. perspective mirrors the
// native kernel contract (spec.md §6.1) but is ignored here: coordinates
// are always read on the board's absolute grid, whichever value is passed.
func (b *Board) Apply(action string, perspective bool) error {
	_ = perspective
	kind, x, y, err := parseAction(action)
	if err != nil {
		return err
	}
	switch kind {
	case actionMove:
		target := cell{x, y}
		legal := false
		for _, t := range b.legalMoveTargets() {
			if t == target {
				legal = true
				break
			}
		}
		if !legal {
			return fmt.Errorf("move to (%d,%d): %w", x, y, ErrIllegal)
		}
		b.tokens[b.toMove] = target
	case actionWallH, actionWallV:
		orient := horizontal
		if kind == actionWallV {
			orient = vertical
		}
		if b.wallsPlaced[b.toMove] >= MaxWallsPerPlayer {
			return fmt.Errorf("no walls remaining: %w", ErrIllegal)
		}
		if x < 0 || x >= BoardSize-1 || y < 0 || y >= BoardSize-1 {
			return fmt.Errorf("wall out of range: %w", ErrIllegal)
		}
		if !b.wallIsLegal(x, y, orient) {
			return fmt.Errorf("wall at (%d,%d) blocks a path: %w", x, y, ErrIllegal)
		}
		b.walls = append(b.walls, placedWall{x: x, y: y, kind: orient})
		b.wallsPlaced[b.toMove]++
	}
	b.toMove = 1 - b.toMove
	return nil
}

// IsTerminal reports whether either token has reached its goal row.
func (b *Board) IsTerminal() bool {
	return b.tokens[0].y == b.goalRow(0) || b.tokens[1].y == b.goalRow(1)
}

// Winner returns the index of the player who reached their goal, or -1.
func (b *Board) Winner() int {
	if b.tokens[0].y == b.goalRow(0) {
		return 0
	}
	if b.tokens[1].y == b.goalRow(1) {
		return 1
	}
	return -1
}

// Display renders a simple ASCII board, marking player 1 as "1" and player
// 2 as "2". Walls are not drawn.
func (b *Board) Display(perspective bool) string {
	_ = perspective
	grid := make([][]rune, BoardSize)
	for y := range grid {
		grid[y] = make([]rune, BoardSize)
		for x := range grid[y] {
			grid[y][x] = '.'
		}
	}
	grid[b.tokens[0].y][b.tokens[0].x] = '1'
	grid[b.tokens[1].y][b.tokens[1].x] = '2'

	out := ""
	for y := BoardSize - 1; y >= 0; y-- {
		for x := 0; x < BoardSize; x++ {
			out += string(grid[y][x])
		}
		out += "\n"
	}
	return out
}

// ToMove returns the index (0 or 1) of the player whose turn it is.
func (b *Board) ToMove() int { return b.toMove }
