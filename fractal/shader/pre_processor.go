// pre_processor.go implements the fractal WGSL pre-processor. It scans kernel
// source code for @fract: annotations and replaces them with generated WGSL
// before the source is parsed or handed to the device for compilation. Only one
// annotation exists today:
//
//   - @fract:workgroup_size — replaced with @workgroup_size(e, e) where e is the
//     square workgroup edge length chosen by the dispatch planner. This keeps the
//     kernel-compile-time geometry and the dispatch-time geometry agreed on a
//     single value instead of maintaining them by hand in two places.
package shader

import (
	"fmt"
	"strings"
)

// annotationPrefix marks pre-processor directives in kernel source.
const annotationPrefix = "@fract:"

// annotationWorkgroupSize is the workgroup geometry injection annotation.
const annotationWorkgroupSize = annotationPrefix + "workgroup_size"

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// workgroupEdge is the square workgroup edge length emitted for
	// @fract:workgroup_size annotations.
	workgroupEdge uint32
}

// PreProcessor processes raw WGSL kernel source containing @fract: annotations,
// replacing them with generated WGSL output.
type PreProcessor interface {
	// Process takes raw WGSL kernel source and replaces every @fract: annotation
	// with its generated WGSL output. Unknown @fract: annotations are an error.
	//
	// Parameters:
	//   - source: the raw WGSL source to process
	//
	// Returns:
	//   - string: the processed WGSL source, ready for parsing and compilation
	//   - error: an error if an unknown annotation is encountered
	Process(source string) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor that resolves @fract: annotations
// against the given workgroup edge length.
//
// Parameters:
//   - workgroupEdge: the square workgroup edge length for @fract:workgroup_size
//
// Returns:
//   - PreProcessor: the configured pre-processor
func NewPreProcessor(workgroupEdge uint32) PreProcessor {
	return &preProcessor{workgroupEdge: workgroupEdge}
}

func (p *preProcessor) Process(source string) (string, error) {
	out := strings.ReplaceAll(
		source,
		annotationWorkgroupSize,
		fmt.Sprintf("@workgroup_size(%d, %d)", p.workgroupEdge, p.workgroupEdge),
	)

	// Any remaining @fract: token is an annotation this pre-processor does not
	// understand; letting it through would surface as an opaque WGSL compile
	// error from the device instead.
	if idx := strings.Index(out, annotationPrefix); idx >= 0 {
		end := idx
		for end < len(out) && !strings.ContainsRune(" \t\r\n(", rune(out[end])) {
			end++
		}
		return "", fmt.Errorf("unknown pre-processor annotation %q", out[idx:end])
	}

	return out, nil
}
