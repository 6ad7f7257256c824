package config

import "strings"

// RegisterListOp appends an operation against the list found at dotted
// path. Operations apply in registration order, after the full layer
// merge, only against the top-level key that owns path.
func (d *DeepChainMap) RegisterListOp(path string, op ListOp) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listOps[path] = append(d.listOps[path], op)
	top := strings.SplitN(path, ".", 2)[0]
	delete(d.cache, top)
}

// OwnList copies the currently-visible list at path into the front layer
// as a plain mutable list, so subsequent list ops or direct writes own it
// outright instead of being computed from lower layers each time.
func (d *DeepChainMap) OwnList(path string) ([]any, error) {
	parts := strings.Split(path, ".")
	v, ok := d.Get(parts[0])
	if !ok {
		return nil, ErrKeyNotFound
	}
	cur := unfreezeAt(v, parts[1:])
	list, ok := cur.([]any)
	if !ok {
		list = []any{}
	}
	owned := append([]any{}, list...)
	d.mu.Lock()
	defer d.mu.Unlock()
	setNested(d.frontLayer, parts, owned)
	delete(d.cache, parts[0])
	return owned, nil
}

func unfreezeAt(v any, path []string) any {
	cur := unfreeze(v)
	for _, p := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = unfreeze(m[p])
	}
	return cur
}

func unfreeze(v any) any {
	switch t := v.(type) {
	case FrozenMapping:
		out := make(map[string]any, len(t.data))
		for k, val := range t.data {
			out[k] = unfreeze(val)
		}
		return out
	case FrozenSequence:
		out := make([]any, len(t.data))
		for i, val := range t.data {
			out[i] = unfreeze(val)
		}
		return out
	default:
		return v
	}
}

// applyListOpsForKey applies every registered op under topKey, in
// registration order, against merged (the fully merged, unfrozen value for
// that top-level key).
func applyListOpsForKey(merged any, topKey string, ops map[string][]ListOp) any {
	if len(ops) == 0 {
		return merged
	}
	result := merged
	for path, opList := range ops {
		parts := strings.Split(path, ".")
		if parts[0] != topKey {
			continue
		}
		for _, op := range opList {
			result = applyOpAtPath(result, parts[1:], op)
		}
	}
	return result
}

func applyOpAtPath(root any, path []string, op ListOp) any {
	if len(path) == 0 {
		return applyListOp(root, op)
	}
	m, ok := root.(map[string]any)
	if !ok {
		return root
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	out[path[0]] = applyOpAtPath(out[path[0]], path[1:], op)
	return out
}

func applyListOp(v any, op ListOp) any {
	list, _ := v.([]any)
	switch op.Kind {
	case ListExtend:
		if extra, ok := op.Value.([]any); ok {
			return append(append([]any{}, list...), extra...)
		}
		return list
	case ListAppend:
		return append(append([]any{}, list...), op.Value)
	case ListPrepend:
		return append([]any{op.Value}, list...)
	case ListRemove:
		out := make([]any, 0, len(list))
		for _, item := range list {
			if item == op.Value {
				continue
			}
			out = append(out, item)
		}
		return out
	case ListClear:
		return []any{}
	case ListInsert:
		idx := op.Index
		if idx < 0 {
			idx = 0
		}
		if idx > len(list) {
			idx = len(list)
		}
		out := make([]any, 0, len(list)+1)
		out = append(out, list[:idx]...)
		out = append(out, op.Value)
		out = append(out, list[idx:]...)
		return out
	default:
		return list
	}
}
