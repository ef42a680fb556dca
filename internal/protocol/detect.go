package protocol

import "log/slog"

// Detector turns raw model text into a canonicalized, deduplicated,
// safety-classified batch of invocations. It is a pure function over text:
// no I/O, deterministic for identical input.
type Detector struct {
	reg *Registry
}

// NewDetector creates a detector bound to a registry.
func NewDetector(reg *Registry) *Detector {
	return &Detector{reg: reg}
}

// DetectAll extracts every valid invocation from one model turn and arranges
// it into a batch: read-only calls in source order (capped at the registry's
// parallel limit), plus at most one mutating call. A read-only call appearing
// after the mutation, or a second mutation, terminates accumulation; later
// calls are discarded, since the model cannot express cross-call ordering
// dependencies within one turn.
func (d *Detector) DetectAll(text string) Batch {
	valid, sawTool := d.validCalls(text)

	if len(valid) == 0 && !sawTool {
		// No candidate carried a "tool" key at all: try bare-args recovery
		// before giving up. A tool-keyed object that failed validation is
		// left for the Diagnoser instead, so its correction is not shadowed
		// by an incidental bare object.
		if inv := d.recoverBareArgs(text); inv != nil {
			valid = []Invocation{*inv}
		}
	}
	if len(valid) == 0 {
		return Batch{}
	}

	var batch Batch
	for i := range valid {
		inv := valid[i]
		if d.reg.IsReadOnly(inv.Name) {
			if batch.Mutating != nil {
				// Read positioned after a mutation: discard it and everything
				// that follows, rather than silently reordering.
				slog.Debug("discarding call after classification boundary", "tool", inv.Name)
				recordDiscard("read_after_mutation")
				break
			}
			batch.ReadOnly = append(batch.ReadOnly, inv)
			recordDetection(inv, false)
			continue
		}
		if batch.Mutating != nil {
			slog.Debug("discarding second mutating call", "tool", inv.Name)
			recordDiscard("second_mutation")
			break
		}
		batch.Mutating = &inv
		recordDetection(inv, true)
	}

	if max := d.reg.MaxParallel(); len(batch.ReadOnly) > max {
		batch.ReadOnly = batch.ReadOnly[:max]
		recordDiscard("parallel_cap")
	}
	return batch
}

// DetectSingle returns the first valid call under the fixed family priority
// (registration order), falling back to bare-args recovery. For call sites
// that only ever need one call per turn.
func (d *Detector) DetectSingle(text string) *Invocation {
	for _, a := range d.reg.Adapters() {
		if inv := a.Detect(text); inv != nil {
			return inv
		}
	}
	return d.recoverBareArgs(text)
}

// validCalls extracts, validates, and deduplicates every candidate with a
// "tool" key, preserving source order. First occurrence of a canonical key
// wins. sawTool reports whether any candidate carried a "tool" key, valid or
// not: it gates bare-args recovery in DetectAll.
func (d *Detector) validCalls(text string) (out []Invocation, sawTool bool) {
	seen := make(map[string]bool)

	for _, c := range scanCandidates(text) {
		if _, present := c.Obj["tool"]; present {
			sawTool = true
		}
		name, args, ok := splitCall(c.Obj)
		if !ok {
			continue
		}
		a := d.reg.Resolve(name)
		if a == nil {
			continue
		}
		inv, verr := a.Validate(name, args)
		if verr != nil {
			continue
		}
		inv.Span = c.Span
		key := inv.CanonicalKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, *inv)
	}
	return out, sawTool
}

// recoverBareArgs infers a single unambiguous family+name from the key shape
// of a tool-less object. Exactly one family may claim the shape; any
// ambiguity leaves the object for the Diagnoser as a telemetry signal.
func (d *Detector) recoverBareArgs(text string) *Invocation {
	for _, c := range scanCandidates(text) {
		if _, hasTool := c.Obj["tool"]; hasTool {
			continue
		}
		var claimedName string
		var claimedBy Adapter
		ambiguous := false
		for _, a := range d.reg.Adapters() {
			name, ok := a.RecoverBareArgs(c.Obj)
			if !ok {
				continue
			}
			if claimedBy != nil {
				ambiguous = true
				break
			}
			claimedName, claimedBy = name, a
		}
		if claimedBy == nil || ambiguous {
			continue
		}
		inv, verr := claimedBy.Validate(claimedName, c.Obj)
		if verr != nil {
			continue
		}
		inv.Span = c.Span
		slog.Debug("bare-args recovery", "tool", claimedName, "family", claimedBy.Family())
		return inv
	}
	return nil
}

// splitCall pulls the tool name and argument map out of a parsed object.
// Args may be absent (tools with no required arguments).
func splitCall(obj map[string]any) (name string, args map[string]any, ok bool) {
	raw, present := obj["tool"]
	if !present {
		return "", nil, false
	}
	name, ok = raw.(string)
	if !ok || name == "" {
		return "", nil, false
	}
	switch t := obj["args"].(type) {
	case map[string]any:
		args = t
	case nil:
		args = map[string]any{}
	default:
		return "", nil, false
	}
	return name, args, true
}

// DetectFirst is the shared implementation behind every adapter's Detect: it
// scans text for the first candidate whose tool name the validator accepts.
func DetectFirst(text string, validate func(name string, args map[string]any) (*Invocation, *ValidationError)) *Invocation {
	for _, c := range scanCandidates(text) {
		name, args, ok := splitCall(c.Obj)
		if !ok {
			continue
		}
		inv, verr := validate(name, args)
		if verr != nil || inv == nil {
			continue
		}
		inv.Span = c.Span
		return inv
	}
	return nil
}
