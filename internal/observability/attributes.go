// Package observability provides metrics for the orchestrator.
package observability

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys
const (
	attrMethod     = "method"
	attrPath       = "path"
	attrStatus     = "status"
	attrJob        = "job"
	attrKind       = "kind"
	attrCompletion = "completion"
)

func methodAttr(method string) attribute.KeyValue {
	return attribute.String(attrMethod, method)
}

func pathAttr(path string) attribute.KeyValue {
	return attribute.String(attrPath, normalizePath(path))
}

func statusAttr(code int) attribute.KeyValue {
	// 200-299 -> 2xx, 400-499 -> 4xx, 500-599 -> 5xx
	return attribute.String(attrStatus, fmt.Sprintf("%dxx", code/100))
}

func jobAttr(id string) attribute.KeyValue {
	return attribute.String(attrJob, id)
}

func kindAttr(kind string) attribute.KeyValue {
	return attribute.String(attrKind, kind)
}

func completionAttr(completion string) attribute.KeyValue {
	return attribute.String(attrCompletion, completion)
}

// normalizePath replaces job and process ids with placeholders.
func normalizePath(path string) string {
	const prefix = "/v1/jobs/"
	rest, ok := strings.CutPrefix(path, prefix)
	if !ok || rest == "" {
		return path
	}
	_, tail, found := strings.Cut(rest, "/")
	if !found {
		return "/v1/jobs/{jobId}"
	}
	if strings.HasPrefix(tail, "processes/") && len(tail) > len("processes/") {
		return "/v1/jobs/{jobId}/processes/{processId}"
	}
	return "/v1/jobs/{jobId}/" + tail
}
