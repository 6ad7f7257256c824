package config

import "testing"

func TestGetMergesLayersByPriority(t *testing.T) {
	l0 := map[string]any{"a": map[string]any{"x": 1, "y": 2}}
	l1 := map[string]any{"a": map[string]any{"y": 99, "z": 3}}
	dcm := New(l0, l1)

	v, ok := dcm.Get("a")
	if !ok {
		t.Fatalf("expected key a to be visible")
	}
	fm, ok := v.(FrozenMapping)
	if !ok {
		t.Fatalf("expected FrozenMapping, got %T", v)
	}
	if x, _ := fm.Get("x"); x != 1 {
		t.Errorf("x = %v, want 1", x)
	}
	if y, _ := fm.Get("y"); y != 2 {
		t.Errorf("y = %v, want 2 (higher layer should win)", y)
	}
	if z, _ := fm.Get("z"); z != 3 {
		t.Errorf("z = %v, want 3 (only present in lower layer)", z)
	}
}

func TestFrontLayerOutranksSourceLayers(t *testing.T) {
	dcm := New(map[string]any{"a": 1})
	dcm.Set("a", 2)
	v, _ := dcm.Get("a")
	if v != 2 {
		t.Errorf("Get(a) = %v, want 2", v)
	}
}

func TestDeleteThenGetNotFound(t *testing.T) {
	dcm := New(map[string]any{"a": 1})
	if err := dcm.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := dcm.Get("a"); ok {
		t.Errorf("expected a to be deleted")
	}
}

func TestDeleteMissingKeyErrors(t *testing.T) {
	dcm := New(map[string]any{})
	if err := dcm.Delete("missing"); err != ErrKeyNotFound {
		t.Errorf("Delete(missing) = %v, want ErrKeyNotFound", err)
	}
}

func TestReplaceMarkerStopsMerge(t *testing.T) {
	l0 := map[string]any{"a": ReplaceMarker{Value: map[string]any{"only": true}}}
	l1 := map[string]any{"a": map[string]any{"only": false, "extra": 1}}
	dcm := New(l0, l1)
	v, _ := dcm.Get("a")
	fm := v.(FrozenMapping)
	if fm.Len() != 1 {
		t.Errorf("expected ReplaceMarker to discard lower layers, got keys %v", fm.Keys())
	}
}

func TestListsReplaceNotConcatenate(t *testing.T) {
	l0 := map[string]any{"a": []any{1, 2}}
	l1 := map[string]any{"a": []any{3, 4, 5}}
	dcm := New(l0, l1)
	v, _ := dcm.Get("a")
	fs := v.(FrozenSequence)
	if fs.Len() != 2 {
		t.Errorf("expected list to replace not concatenate, got len %d", fs.Len())
	}
}

func TestListOpAppend(t *testing.T) {
	dcm := New(map[string]any{"a": map[string]any{"items": []any{1, 2}}})
	dcm.RegisterListOp("a.items", ListOp{Kind: ListAppend, Value: 3})
	v, _ := dcm.Get("a")
	fm := v.(FrozenMapping)
	items, _ := fm.Get("items")
	fs := items.(FrozenSequence)
	if fs.Len() != 3 {
		t.Errorf("expected 3 items after append, got %d", fs.Len())
	}
	last, _ := fs.Get(2)
	if last != 3 {
		t.Errorf("last item = %v, want 3", last)
	}
}

func TestFrozenMappingSetFails(t *testing.T) {
	fm := FrozenMapping{}
	if err := fm.Set("x", 1); err != ErrFrozen {
		t.Errorf("Set on FrozenMapping = %v, want ErrFrozen", err)
	}
}

func TestReloadDoesNotChangeReadsWhenUnchanged(t *testing.T) {
	dcm := New(map[string]any{"a": 1})
	before, _ := dcm.Get("a")
	dcm.Reload()
	after, _ := dcm.Get("a")
	if before != after {
		t.Errorf("Reload changed observable read: %v -> %v", before, after)
	}
}

func TestGetWithProvenance(t *testing.T) {
	l0 := map[string]any{"a": map[string]any{"x": 1}}
	l1 := map[string]any{"a": map[string]any{"y": 2}}
	dcm := New(l0, l1)
	dcm.Set("b", "front")

	_, prov, ok := dcm.GetWithProvenance("a")
	if !ok {
		t.Fatalf("expected a to resolve")
	}
	if prov["x"] != 0 {
		t.Errorf("provenance[x] = %v, want layer 0", prov["x"])
	}
	if prov["y"] != 1 {
		t.Errorf("provenance[y] = %v, want layer 1", prov["y"])
	}

	_, prov2, ok := dcm.GetWithProvenance("b")
	if !ok {
		t.Fatalf("expected b to resolve")
	}
	if prov2[""] != FrontLayerIndex {
		t.Errorf("provenance[\"\"] = %v, want FrontLayerIndex", prov2[""])
	}
}

func TestEnvOverrideOutranksEverything(t *testing.T) {
	dcm := New(map[string]any{"a": map[string]any{"x": 1}})
	dcm.Set("a", map[string]any{"x": 2})
	dcm.SetEnvOverride(map[string]any{"a": map[string]any{"x": 3}})
	v, _ := dcm.Get("a")
	fm := v.(FrozenMapping)
	x, _ := fm.Get("x")
	if x != 3 {
		t.Errorf("x = %v, want env override value 3", x)
	}
}

func TestOwnListCopiesIntoFrontLayer(t *testing.T) {
	dcm := New(map[string]any{"a": map[string]any{"items": []any{1, 2}}})
	owned, err := dcm.OwnList("a.items")
	if err != nil {
		t.Fatalf("OwnList: %v", err)
	}
	if len(owned) != 2 {
		t.Fatalf("expected 2 owned items, got %d", len(owned))
	}
	dcm.Mutable("").Set("a.items", append(owned, 3))
	v, _ := dcm.Get("a")
	fm := v.(FrozenMapping)
	items, _ := fm.Get("items")
	if items.(FrozenSequence).Len() != 3 {
		t.Errorf("expected 3 items after owning and extending")
	}
}
