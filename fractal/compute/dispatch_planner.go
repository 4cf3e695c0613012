package compute

import (
	"fmt"

	"github.com/Carmen-Shannon/fractal-go/common"
)

// WorkgroupGeometry describes the square workgroup and dispatch grid chosen
// for one computation. Derived from the image dimensions and device limits;
// recomputed whenever either changes, never mutated in place.
type WorkgroupGeometry struct {
	// EdgeLength is the square workgroup edge; each workgroup runs
	// EdgeLength × EdgeLength kernel invocations.
	EdgeLength uint32

	// GroupsX is the dispatch grid width: image width / EdgeLength.
	GroupsX uint32

	// GroupsY is the dispatch grid height: image height / EdgeLength.
	GroupsY uint32
}

// dispatchPlanner is the implementation of the DispatchPlanner interface.
type dispatchPlanner struct {
	maxInvocations uint32

	// explicitEdge is a caller-requested edge length, validated rather than
	// searched for. Zero means no override.
	explicitEdge uint32
}

// DispatchPlanner computes workgroup geometry from device capability limits
// and target image dimensions. It is constructed once per computation with
// the limits in hand and threaded through as an ordinary value; there is no
// lazily-initialized global geometry.
//
// Divisibility policy: the planner only ever produces an edge length that
// divides both image dimensions exactly. With no explicit override it searches
// downward from floor(sqrt(maxInvocations)) for the largest such divisor
// (edge 1 always qualifies, so the search cannot fail). With an explicit
// override it validates the requested edge and fails fast with a
// configuration fault instead of rounding the grid or truncating the image.
type DispatchPlanner interface {
	// Plan computes the workgroup geometry for the given image dimensions.
	// Fails before any device work when the dimensions are incompatible with
	// the edge length policy above.
	//
	// Parameters:
	//   - width: image width in pixels, must be positive
	//   - height: image height in pixels, must be positive
	//
	// Returns:
	//   - WorkgroupGeometry: the chosen edge length and dispatch grid
	//   - error: a configuration fault if no valid geometry exists
	Plan(width, height uint32) (WorkgroupGeometry, error)
}

var _ DispatchPlanner = &dispatchPlanner{}

// DispatchPlannerOption is a functional option applied to a dispatch planner during construction.
type DispatchPlannerOption func(*dispatchPlanner)

// WithExplicitEdge requests a specific workgroup edge length instead of the
// largest-divisor search. The requested edge is still validated against the
// device invocation limit and image divisibility at Plan time.
//
// Parameters:
//   - edge: the workgroup edge length to use
//
// Returns:
//   - DispatchPlannerOption: option function to apply
func WithExplicitEdge(edge uint32) DispatchPlannerOption {
	return func(p *dispatchPlanner) {
		p.explicitEdge = edge
	}
}

// NewDispatchPlanner creates a DispatchPlanner for a device advertising the
// given maximum invocations per workgroup.
//
// Parameters:
//   - maxInvocations: the device's max-invocations-per-workgroup limit
//   - options: functional options to further configure the planner
//
// Returns:
//   - DispatchPlanner: the configured planner
func NewDispatchPlanner(maxInvocations uint32, options ...DispatchPlannerOption) DispatchPlanner {
	p := &dispatchPlanner{maxInvocations: maxInvocations}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *dispatchPlanner) Plan(width, height uint32) (WorkgroupGeometry, error) {
	if width == 0 || height == 0 {
		return WorkgroupGeometry{}, fmt.Errorf("%w: image dimensions must be positive, got %dx%d", common.ErrConfigurationFault, width, height)
	}
	if p.maxInvocations == 0 {
		return WorkgroupGeometry{}, fmt.Errorf("%w: device advertises zero invocations per workgroup", common.ErrCapabilityFault)
	}

	edge := p.explicitEdge
	if edge != 0 {
		if invocations := uint64(edge) * uint64(edge); invocations > uint64(p.maxInvocations) {
			return WorkgroupGeometry{}, fmt.Errorf("%w: workgroup edge %d needs %d invocations, device limit is %d",
				common.ErrConfigurationFault, edge, invocations, p.maxInvocations)
		}
		if width%edge != 0 || height%edge != 0 {
			return WorkgroupGeometry{}, fmt.Errorf("%w: workgroup edge %d does not evenly divide image %dx%d",
				common.ErrConfigurationFault, edge, width, height)
		}
	} else {
		edge = largestCommonEdge(width, height, p.maxInvocations)
	}

	return WorkgroupGeometry{
		EdgeLength: edge,
		GroupsX:    width / edge,
		GroupsY:    height / edge,
	}, nil
}

// largestCommonEdge returns the largest edge e with e*e <= maxInvocations that
// evenly divides both width and height. Descends from floor(sqrt(max)); e = 1
// always divides, so the result is never zero.
func largestCommonEdge(width, height, maxInvocations uint32) uint32 {
	e := isqrt(maxInvocations)
	for e > 1 {
		if width%e == 0 && height%e == 0 {
			break
		}
		e--
	}
	return e
}

// isqrt returns floor(sqrt(n)) using integer arithmetic only, so the planner
// cannot pick an edge whose square exceeds the limit through float rounding.
func isqrt(n uint32) uint32 {
	var r uint32
	for (r+1)*(r+1) <= n && r+1 <= 0xFFFF {
		r++
	}
	return r
}
