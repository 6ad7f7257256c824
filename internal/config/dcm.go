// Package config implements the layered deep-merge configuration engine
// (DeepChainMap) and the loader that assembles it from the built-in,
// site, deployment, user, project, and environment layers.
package config

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrFrozen is raised by any attempt to mutate a frozen view.
var ErrFrozen = errors.New("config: cannot mutate a frozen view")

// ErrKeyNotFound is raised by delete on a key that is not visible.
var ErrKeyNotFound = errors.New("config: key not found")

// ErrUnhashable names the error for hashing a ReplaceMarker or frozen
// view. No function in this package returns it; Go itself rejects these
// types as map keys because they hold maps or slices.
var ErrUnhashable = errors.New("config: value is not hashable")

// ReplaceMarker wraps a value to tell the merge algorithm to discard any
// lower-priority layers at this node and substitute the wrapped value.
type ReplaceMarker struct {
	Value any
}

// FrontLayerIndex and EnvOverrideIndex are the provenance sentinels used by
// GetWithProvenance: -1 identifies the front layer, -2 an environment
// override layer.
const (
	FrontLayerIndex  = -1
	EnvOverrideIndex = -2
)

// layer is one named, immutable source layer in the stack, ordered by
// decreasing priority (index 0 is the highest-priority source layer).
type layer struct {
	index int
	data  map[string]any
}

// ListOpKind names a registered list mutation applied after merge.
type ListOpKind string

const (
	ListExtend ListOpKind = "extend"
	ListAppend ListOpKind = "append"
	ListPrepend ListOpKind = "prepend"
	ListRemove ListOpKind = "remove"
	ListClear  ListOpKind = "clear"
	ListInsert ListOpKind = "insert"
)

// ListOp is one registered operation against a dotted path.
type ListOp struct {
	Kind  ListOpKind
	Value any
	Index int // only meaningful for ListInsert
}

// DeepChainMap is a stack of source layers plus a front-layer overlay that
// absorbs caller mutations, merged lazily and cached per top-level key.
type DeepChainMap struct {
	mu          sync.RWMutex
	frontLayer  map[string]any
	envOverride map[string]any // present only when ConfigLoader installs one
	layers      []layer
	deleted     map[string]bool
	listOps     map[string][]ListOp // key: dotted path
	cache       map[string]any
	provenance  bool
}

// New builds a DeepChainMap from layers ordered highest-priority first.
// Layer 0 is L0 in the spec's notation.
func New(layersData ...map[string]any) *DeepChainMap {
	d := &DeepChainMap{
		frontLayer: map[string]any{},
		deleted:    map[string]bool{},
		listOps:    map[string][]ListOp{},
		cache:      map[string]any{},
	}
	for i, data := range layersData {
		if data == nil {
			data = map[string]any{}
		}
		d.layers = append(d.layers, layer{index: i, data: data})
	}
	return d
}

// EnableProvenance records the provenance flag. GetWithProvenance builds
// its tree on every call whether or not the flag is set, and the hot Get
// path never builds one.
func (d *DeepChainMap) EnableProvenance(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.provenance = on
}

// SetEnvOverride installs the environment-override pseudo-layer, which
// outranks every source layer and the front layer, and is tagged
// EnvOverrideIndex in provenance trees.
func (d *DeepChainMap) SetEnvOverride(data map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.envOverride = data
	d.cache = map[string]any{}
}

// AddLayer inserts data as a new source layer at the given priority index,
// shifting layers at or after index down, and drops the whole cache since
// a structural change invalidates every merged key.
func (d *DeepChainMap) AddLayer(index int, data map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if data == nil {
		data = map[string]any{}
	}
	if index < 0 || index > len(d.layers) {
		index = len(d.layers)
	}
	next := make([]layer, 0, len(d.layers)+1)
	next = append(next, d.layers[:index]...)
	next = append(next, layer{index: index, data: data})
	for _, l := range d.layers[index:] {
		next = append(next, layer{index: l.index + 1, data: l.data})
	}
	d.layers = next
	d.cache = map[string]any{}
}

// RemoveLayer deletes the source layer at index and drops the cache.
func (d *DeepChainMap) RemoveLayer(index int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	next := make([]layer, 0, len(d.layers))
	for _, l := range d.layers {
		if l.index == index {
			continue
		}
		next = append(next, layer{index: len(next), data: l.data})
	}
	d.layers = next
	d.cache = map[string]any{}
}

// Get reads the merged, frozen value for top-level key k.
func (d *DeepChainMap) Get(k string) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.getLocked(k)
}

func (d *DeepChainMap) getLocked(k string) (any, bool) {
	if d.deleted[k] {
		return nil, false
	}
	if v, ok := d.cache[k]; ok {
		return v, true
	}
	merged, ok := d.mergeKeyLocked(k)
	if !ok {
		return nil, false
	}
	merged = applyListOpsForKey(merged, k, d.listOps)
	frozen := freeze(merged)
	d.cache[k] = frozen
	return frozen, true
}

// candidatesForKey returns the values contributing to key k, in descending
// priority order: env override, front layer, then each source layer.
func (d *DeepChainMap) candidatesForKey(k string) []any {
	var candidates []any
	if d.envOverride != nil {
		if v, ok := d.envOverride[k]; ok {
			candidates = append(candidates, v)
		}
	}
	if v, ok := d.frontLayer[k]; ok {
		candidates = append(candidates, v)
	}
	for _, l := range d.layers {
		if v, ok := l.data[k]; ok {
			candidates = append(candidates, v)
		}
	}
	return candidates
}

func (d *DeepChainMap) mergeKeyLocked(k string) (any, bool) {
	candidates := d.candidatesForKey(k)
	if len(candidates) == 0 {
		return nil, false
	}
	return mergeCandidates(candidates), true
}

// mergeCandidates deep-merges values in descending priority order per the
// DeepChainMap merge rule: mappings merge recursively; a ReplaceMarker
// unwraps and stops the merge at that node; any other non-mapping value
// wins over every lower-priority candidate without looking at them.
func mergeCandidates(candidates []any) any {
	if len(candidates) == 0 {
		return nil
	}
	top := candidates[0]
	if rm, ok := top.(ReplaceMarker); ok {
		return rm.Value
	}
	topMap, topIsMap := asMap(top)
	if !topIsMap {
		return top
	}
	result := make(map[string]any, len(topMap))
	for k, v := range topMap {
		result[k] = v
	}
	for _, lower := range candidates[1:] {
		if rm, ok := lower.(ReplaceMarker); ok {
			for k, v := range asMapOrEmpty(rm.Value) {
				if existing, present := result[k]; present {
					result[k] = mergeSubkey(existing, v)
				} else {
					result[k] = v
				}
			}
			break
		}
		lowerMap, lowerIsMap := asMap(lower)
		if !lowerIsMap {
			// A non-mapping lower layer never overrides an already
			// established mapping result; it only matters when no
			// higher-priority mapping key claimed this slot yet, which
			// is handled per-subkey below via mergeSubkey.
			continue
		}
		for k, v := range lowerMap {
			if existing, present := result[k]; present {
				result[k] = mergeSubkey(existing, v)
			} else {
				result[k] = v
			}
		}
	}
	return result
}

// mergeSubkey applies the same merge rule one level down: if both sides
// are mappings, merge recursively; otherwise the higher-priority (first)
// value wins.
func mergeSubkey(higher, lower any) any {
	if rm, ok := higher.(ReplaceMarker); ok {
		return rm.Value
	}
	hMap, hIsMap := asMap(higher)
	lMap, lIsMap := asMap(lower)
	if hIsMap && lIsMap {
		result := make(map[string]any, len(hMap))
		for k, v := range hMap {
			result[k] = v
		}
		for k, v := range lMap {
			if existing, present := result[k]; present {
				result[k] = mergeSubkey(existing, v)
			} else {
				result[k] = v
			}
		}
		return result
	}
	return higher
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asMapOrEmpty(v any) map[string]any {
	if m, ok := asMap(v); ok {
		return m
	}
	return map[string]any{}
}

// Set writes v into the front layer under key k and invalidates its cache
// entry.
func (d *DeepChainMap) Set(k string, v any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frontLayer[k] = v
	delete(d.deleted, k)
	delete(d.cache, k)
}

// Delete marks k deleted if it is currently visible, otherwise returns
// ErrKeyNotFound.
func (d *DeepChainMap) Delete(k string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.getLocked(k); !ok {
		return ErrKeyNotFound
	}
	d.deleted[k] = true
	delete(d.frontLayer, k)
	delete(d.cache, k)
	return nil
}

// Contains reports whether k is visible.
func (d *DeepChainMap) Contains(k string) bool {
	_, ok := d.Get(k)
	return ok
}

// Keys returns every visible top-level key, sorted.
func (d *DeepChainMap) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	seen := map[string]bool{}
	for k := range d.frontLayer {
		seen[k] = true
	}
	for k := range d.envOverride {
		seen[k] = true
	}
	for _, l := range d.layers {
		for k := range l.data {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		if d.deleted[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of visible top-level keys.
func (d *DeepChainMap) Len() int {
	return len(d.Keys())
}

// ToDict returns a plain deep copy of every visible key/value, with list
// ops applied and no freezing.
func (d *DeepChainMap) ToDict() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := d.unlockedKeys()
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		merged, ok := d.mergeKeyLocked(k)
		if !ok {
			continue
		}
		out[k] = deepCopy(applyListOpsForKey(merged, k, d.listOps))
	}
	return out
}

func (d *DeepChainMap) unlockedKeys() []string {
	seen := map[string]bool{}
	for k := range d.frontLayer {
		seen[k] = true
	}
	for k := range d.envOverride {
		seen[k] = true
	}
	for _, l := range d.layers {
		for k := range l.data {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		if d.deleted[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reload drops every cached merged value. Observable reads are unchanged
// if no layer, front-layer, or list-op state changed since the cache was
// populated.
func (d *DeepChainMap) Reload() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache = map[string]any{}
}

// Provenance is a tree whose leaves are layer indices: FrontLayerIndex,
// EnvOverrideIndex, or a non-negative source layer index.
type Provenance map[string]any

// GetWithProvenance returns the merged value for k and a provenance map
// locating which layer each first-level key of that value came from (key
// "" when the winning value is not a mapping). Keys nested deeper than the
// first level are not attributed.
func (d *DeepChainMap) GetWithProvenance(k string) (any, Provenance, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deleted[k] {
		return nil, nil, false
	}
	candidates := d.candidatesForKeyWithIndex(k)
	if len(candidates) == 0 {
		return nil, nil, false
	}
	merged := mergeCandidates(valuesOnly(candidates))
	merged = applyListOpsForKey(merged, k, d.listOps)
	prov := buildProvenance(candidates)
	return freeze(merged), prov, true
}

type indexedValue struct {
	index int
	value any
}

func (d *DeepChainMap) candidatesForKeyWithIndex(k string) []indexedValue {
	var out []indexedValue
	if d.envOverride != nil {
		if v, ok := d.envOverride[k]; ok {
			out = append(out, indexedValue{EnvOverrideIndex, v})
		}
	}
	if v, ok := d.frontLayer[k]; ok {
		out = append(out, indexedValue{FrontLayerIndex, v})
	}
	for _, l := range d.layers {
		if v, ok := l.data[k]; ok {
			out = append(out, indexedValue{l.index, v})
		}
	}
	return out
}

func valuesOnly(in []indexedValue) []any {
	out := make([]any, len(in))
	for i, iv := range in {
		out[i] = iv.value
	}
	return out
}

// buildProvenance walks the same merge precedence as mergeCandidates but
// records, per first-level key, which layer index won.
func buildProvenance(candidates []indexedValue) Provenance {
	prov := Provenance{}
	// Highest priority candidate sets the baseline; mapping keys not
	// present there are attributed to the first lower layer that defines
	// them. Only the first level of keys is walked.
	if len(candidates) == 0 {
		return prov
	}
	topMap, topIsMap := asMap(candidates[0].value)
	if !topIsMap {
		return Provenance{"": candidates[0].index}
	}
	for key := range topMap {
		prov[key] = candidates[0].index
	}
	for _, c := range candidates[1:] {
		lowerMap, ok := asMap(c.value)
		if !ok {
			continue
		}
		for key := range lowerMap {
			if _, present := prov[key]; !present {
				prov[key] = c.index
			}
		}
	}
	return prov
}

// MutableProxy routes nested writes into front_layer at a tracked path
// prefix and invalidates only the affected top-level cache key.
type MutableProxy struct {
	dcm    *DeepChainMap
	prefix []string
}

// Mutable returns a MutableProxy rooted at the dotted path prefix (empty
// string for the root).
func (d *DeepChainMap) Mutable(prefix string) *MutableProxy {
	var parts []string
	if prefix != "" {
		parts = strings.Split(prefix, ".")
	}
	return &MutableProxy{dcm: d, prefix: parts}
}

// Set writes a nested value at prefix+path into the front layer.
func (p *MutableProxy) Set(path string, v any) {
	full := append(append([]string{}, p.prefix...), strings.Split(path, ".")...)
	p.dcm.mu.Lock()
	defer p.dcm.mu.Unlock()
	setNested(p.dcm.frontLayer, full, v)
	delete(p.dcm.cache, full[0])
}

// Delete removes a nested value at prefix+path from the front layer.
func (p *MutableProxy) Delete(path string) {
	full := append(append([]string{}, p.prefix...), strings.Split(path, ".")...)
	p.dcm.mu.Lock()
	defer p.dcm.mu.Unlock()
	deleteNested(p.dcm.frontLayer, full)
	delete(p.dcm.cache, full[0])
}

func setNested(root map[string]any, path []string, v any) {
	if len(path) == 0 {
		return
	}
	if len(path) == 1 {
		root[path[0]] = v
		return
	}
	next, ok := root[path[0]].(map[string]any)
	if !ok {
		next = map[string]any{}
		root[path[0]] = next
	}
	setNested(next, path[1:], v)
}

func deleteNested(root map[string]any, path []string) {
	if len(path) == 0 {
		return
	}
	if len(path) == 1 {
		delete(root, path[0])
		return
	}
	next, ok := root[path[0]].(map[string]any)
	if !ok {
		return
	}
	deleteNested(next, path[1:])
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = deepCopy(v)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = deepCopy(v)
		}
		return out
	default:
		return v
	}
}
