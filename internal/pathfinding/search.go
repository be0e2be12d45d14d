package pathfinding

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"voxelnav/internal/world"
)

// DefaultIterationBudget is the number of frontier expansions a search may spend.
const DefaultIterationBudget = 2000

// goalTolerance is the Manhattan distance at which a search considers the destination
// reached; the destination itself is often not standable.
const goalTolerance = 1

// Lower bounds on cost per block travelled, derived from the move table: a diagonal
// step costs 1.4 for ~1.414 blocks of horizontal travel, and each block of vertical
// travel costs at least 0.2 on top of the horizontal component.
const (
	minHorizontalCost = 0.98
	minVerticalCost   = 0.2
)

// Outcome classifies how a search ended.
type Outcome int

const (
	OutcomeFound Outcome = iota
	OutcomeUnreachable
	OutcomeBudgetExceeded
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeUnreachable:
		return "unreachable"
	case OutcomeBudgetExceeded:
		return "budget-exceeded"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	for _, candidate := range []Outcome{OutcomeFound, OutcomeUnreachable, OutcomeBudgetExceeded, OutcomeCancelled} {
		if candidate.String() == string(text) {
			*o = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", text)
}

// Heuristic selects the cost-to-go estimate.
type Heuristic int

const (
	// HeuristicAdmissible never overestimates the remaining move cost, so results are
	// cost-optimal within the move model. It scales straight-line distance by the cheapest
	// cost per block instead of using plain Euclidean distance, which overestimates falls
	// and diagonals; HeuristicEuclidean keeps the plain estimate.
	HeuristicAdmissible Heuristic = iota
	// HeuristicEuclidean is plain straight-line distance to the destination. It expands
	// fewer nodes but overestimates falls and diagonals.
	HeuristicEuclidean
)

// ParseHeuristic parses a textual heuristic label.
func ParseHeuristic(value string) (Heuristic, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "admissible":
		return HeuristicAdmissible, nil
	case "euclidean":
		return HeuristicEuclidean, nil
	default:
		return HeuristicAdmissible, fmt.Errorf("unknown heuristic %q", value)
	}
}

func (h Heuristic) String() string {
	if h == HeuristicEuclidean {
		return "euclidean"
	}
	return "admissible"
}

// Request describes one search.
type Request struct {
	Origin      world.Coord
	Destination world.Coord
	Options     Options
	// Budget overrides the engine's iteration budget when positive.
	Budget int
}

// Result is the outcome of a search. Path is empty unless Outcome is OutcomeFound.
type Result struct {
	Outcome  Outcome
	Path     Path
	Cost     float64
	Expanded int
	Elapsed  time.Duration
}

func (r Result) Found() bool {
	return r.Outcome == OutcomeFound
}

// Engine performs bounded A* searches over a terrain field. It holds no per-search
// state and may be shared between goroutines.
type Engine struct {
	budget    int
	heuristic Heuristic
}

// NewEngine returns an engine with the given default budget and heuristic. A
// non-positive budget selects DefaultIterationBudget.
func NewEngine(budget int, heuristic Heuristic) *Engine {
	if budget <= 0 {
		budget = DefaultIterationBudget
	}
	return &Engine{budget: budget, heuristic: heuristic}
}

func (e *Engine) Budget() int {
	return e.budget
}

func (e *Engine) Heuristic() Heuristic {
	return e.heuristic
}

// Search finds a least-cost waypoint sequence from req.Origin to a voxel within
// Manhattan distance 1 of req.Destination. Running out of budget is reported as
// OutcomeBudgetExceeded, not as an error.
func (e *Engine) Search(ctx context.Context, field world.Field, req Request) Result {
	started := time.Now()
	profiler := profilerFromContext(ctx)
	result := e.search(ctx, profiler, field, req)
	result.Elapsed = time.Since(started)
	if profiler != nil {
		profiler.RecordSearch(result.Outcome, result.Elapsed)
	}
	return result
}

func (e *Engine) search(ctx context.Context, profiler NavigatorProfiler, field world.Field, req Request) Result {
	if req.Origin == req.Destination {
		return Result{Outcome: OutcomeFound, Path: NewPath([]world.Coord{req.Destination})}
	}
	budget := req.Budget
	if budget <= 0 {
		budget = e.budget
	}

	state := newSearchState(req.Destination, e.heuristic)
	state.add(req.Origin, -1, 0, profiler)

	moves := make([]Move, 0, 24)
	expanded := 0
	for state.open.Len() > 0 {
		if expanded >= budget {
			return Result{Outcome: OutcomeBudgetExceeded, Expanded: expanded}
		}
		select {
		case <-ctx.Done():
			return Result{Outcome: OutcomeCancelled, Expanded: expanded}
		default:
		}

		current := heap.Pop(&state.open).(int32)
		expanded++
		node := &state.nodes[current]
		node.closed = true
		if profiler != nil {
			profiler.RecordNodeExpanded()
		}
		if node.coord.Manhattan(req.Destination) <= goalTolerance {
			return Result{
				Outcome:  OutcomeFound,
				Path:     state.reconstruct(current),
				Cost:     node.g,
				Expanded: expanded,
			}
		}

		from, g := node.coord, node.g
		moves = Moves(field, from, req.Options, moves[:0])
		if profiler != nil {
			profiler.RecordNeighborGeneration(len(moves))
		}
		for _, move := range moves {
			tentative := g + move.Cost
			idx, seen := state.index[move.Target]
			if !seen {
				state.add(move.Target, current, tentative, profiler)
				continue
			}
			existing := &state.nodes[idx]
			if existing.closed || tentative >= existing.g {
				continue
			}
			existing.parent = current
			existing.g = tentative
			existing.f = tentative + state.estimate(existing.coord)
			heap.Fix(&state.open, existing.heapIndex)
			if profiler != nil {
				profiler.RecordRelaxation()
			}
		}
	}

	return Result{Outcome: OutcomeUnreachable, Expanded: expanded}
}

// searchNode lives in the per-search arena; parent is an arena index, -1 for the origin.
type searchNode struct {
	coord     world.Coord
	parent    int32
	g         float64
	f         float64
	seq       uint32
	heapIndex int
	closed    bool
}

type searchState struct {
	goal      world.Coord
	heuristic Heuristic
	nodes     []searchNode
	index     map[world.Coord]int32
	open      nodeQueue
}

func newSearchState(goal world.Coord, heuristic Heuristic) *searchState {
	s := &searchState{
		goal:      goal,
		heuristic: heuristic,
		nodes:     make([]searchNode, 0, 256),
		index:     make(map[world.Coord]int32, 256),
	}
	s.open.arena = &s.nodes
	return s
}

func (s *searchState) add(coord world.Coord, parent int32, g float64, profiler NavigatorProfiler) {
	idx := int32(len(s.nodes))
	s.nodes = append(s.nodes, searchNode{
		coord:  coord,
		parent: parent,
		g:      g,
		f:      g + s.estimate(coord),
		seq:    uint32(idx),
	})
	s.index[coord] = idx
	heap.Push(&s.open, idx)
	if profiler != nil {
		profiler.RecordHeuristicEvaluation()
	}
}

func (s *searchState) estimate(c world.Coord) float64 {
	if s.heuristic == HeuristicEuclidean {
		return c.Distance(s.goal)
	}
	vertical := float64(c.Y - s.goal.Y)
	h := minHorizontalCost*c.HorizontalDistance(s.goal) + minVerticalCost*math.Abs(vertical)
	// Any voxel within the goal tolerance has h <= minHorizontalCost, so discounting by
	// that amount keeps the estimate a lower bound on the cost to the goal region.
	return math.Max(0, h-minHorizontalCost*goalTolerance)
}

func (s *searchState) reconstruct(idx int32) Path {
	length := 0
	for i := idx; i >= 0; i = s.nodes[i].parent {
		length++
	}
	waypoints := make([]world.Coord, length)
	for i := idx; i >= 0; i = s.nodes[i].parent {
		length--
		waypoints[length] = s.nodes[i].coord
	}
	return Path{waypoints: waypoints}
}

// nodeQueue is a min-heap of arena indices ordered by estimated total cost, ties broken
// by insertion order.
type nodeQueue struct {
	arena *[]searchNode
	items []int32
}

func (q *nodeQueue) Len() int { return len(q.items) }

func (q *nodeQueue) Less(i, j int) bool {
	a := &(*q.arena)[q.items[i]]
	b := &(*q.arena)[q.items[j]]
	if a.f != b.f {
		return a.f < b.f
	}
	return a.seq < b.seq
}

func (q *nodeQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	(*q.arena)[q.items[i]].heapIndex = i
	(*q.arena)[q.items[j]].heapIndex = j
}

func (q *nodeQueue) Push(x any) {
	idx := x.(int32)
	(*q.arena)[idx].heapIndex = len(q.items)
	q.items = append(q.items, idx)
}

func (q *nodeQueue) Pop() any {
	n := len(q.items)
	idx := q.items[n-1]
	q.items = q.items[:n-1]
	(*q.arena)[idx].heapIndex = -1
	return idx
}
