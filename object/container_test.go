package object

import "testing"

func TestArrayAppendIndexRemove(t *testing.T) {
	arr := NewArray()
	defer arr.Release()

	for i := int64(0); i < 3; i++ {
		v := NewInt64(i)
		if err := arr.Append(v); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
		v.Release()
	}

	n, err := arr.Length()
	if err != nil || n != 3 {
		t.Fatalf("Length() = %d, %v, want 3", n, err)
	}

	// Array shift property (spec §8): removing index 1 moves index 2 to 1.
	if err := arr.RemoveIndex(1); err != nil {
		t.Fatalf("RemoveIndex(1): %v", err)
	}
	v, err := arr.Index(1)
	if err != nil {
		t.Fatalf("Index(1) after remove: %v", err)
	}
	got, err := v.Int64()
	if err != nil || got != 2 {
		t.Fatalf("element shifted into index 1 = %d, %v, want 2", got, err)
	}
}

func TestDictionarySetGetRemoveKeys(t *testing.T) {
	d := NewDictionary(nil, nil)
	defer d.Release()

	v1 := NewString("v1")
	if err := d.SetKey("a", v1); err != nil {
		t.Fatalf("SetKey(a): %v", err)
	}
	v1.Release()

	v2 := NewString("v2")
	if err := d.SetKey("b", v2); err != nil {
		t.Fatalf("SetKey(b): %v", err)
	}
	v2.Release()

	got, ok := d.Get("a")
	if !ok {
		t.Fatal("Get(a) missing")
	}
	s, err := got.String()
	if err != nil || s != "v1" {
		t.Fatalf("Get(a) = %q, %v, want v1", s, err)
	}

	keys, err := d.Keys()
	if err != nil || len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("Keys() = %v, %v, want [a b]", keys, err)
	}

	if err := d.RemoveKey("a"); err != nil {
		t.Fatalf("RemoveKey(a): %v", err)
	}
	if _, ok := d.Get("a"); ok {
		t.Fatal("Get(a) still present after RemoveKey")
	}
	keys, err = d.Keys()
	if err != nil || len(keys) != 1 || keys[0] != "b" {
		t.Fatalf("Keys() after remove = %v, %v, want [b]", keys, err)
	}
}

func TestRangeDetectsConcurrentMutation(t *testing.T) {
	arr := NewArray(NewInt64(1), NewInt64(2), NewInt64(3))
	defer arr.Release()

	extra := NewInt64(4)
	defer extra.Release()

	err := arr.Range(func(key string, index int, value *Object) bool {
		if index == 0 {
			_ = arr.Append(extra)
		}
		return true
	})
	if err == nil {
		t.Fatal("expected concurrent-mutation error, got nil")
	}
}

func TestRangeOverCleanArraySucceeds(t *testing.T) {
	arr := NewArray(NewInt64(1), NewInt64(2), NewInt64(3))
	defer arr.Release()

	var seen []int64
	err := arr.Range(func(key string, index int, value *Object) bool {
		v, _ := value.Int64()
		seen = append(seen, v)
		return true
	})
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Fatalf("Range order = %v, want [1 2 3]", seen)
	}
}
