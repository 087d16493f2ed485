package audit

import "maps"

// UpdateProperties describes a change: {"old": ..., "new": ..., "metadata": ...}.
// Nil parts are omitted.
func UpdateProperties(oldValues, newValues, metadata map[string]any) Properties {
	p := Properties{}
	if oldValues != nil {
		p["old"] = oldValues
	}
	if newValues != nil {
		p["new"] = newValues
	}
	if len(metadata) > 0 {
		p["metadata"] = metadata
	}
	return p
}

// ActionProperties describes the outcome of an action. Metadata keys are
// merged at the top level; "result" and "error" always win.
func ActionProperties(result string, err error, metadata map[string]any) Properties {
	p := make(Properties, len(metadata)+2)
	maps.Copy(p, metadata)
	p["result"] = result
	if err != nil {
		p["error"] = err.Error()
	}
	return p
}
