package engine

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestMatchNamePattern(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"Person 1%", "Person 1", true},
		{"Person 1%", "Person 17", true},
		{"Person 1%", "Person 21", false},
		{"%5", "Person 15", true},
		{"Person _", "Person 7", true},
		{"Person _", "Person 77", false},
		{"person%", "Person 1", false},
		{"a.c", "abc", false},
		{"a.c", "a.c", true},
		{"%", "", true},
	}
	for _, tt := range tests {
		if got := MatchNamePattern(tt.pattern)(Person{Name: tt.name}); got != tt.want {
			t.Errorf("MatchNamePattern(%q)(%q) = %v, want %v", tt.pattern, tt.name, got, tt.want)
		}
	}
}

func TestMutations(t *testing.T) {
	p := Person{ID: 3, Name: "Person 3", Age: 30}

	if SetFields(MatchIDs([]int64{1, 2}), "x", 1)(&p) {
		t.Fatal("SetFields matched an id outside the set")
	}
	if !SetFields(MatchAgeRange(30, 30), "Range", 35)(&p) || p.Name != "Range" || p.Age != 35 {
		t.Fatalf("SetFields range: %v", p)
	}

	AddAge(-5)(&p)
	AppendName("!")(&p)
	if p.Age != 30 || p.Name != "Range!" {
		t.Fatalf("AddAge/AppendName: %v", p)
	}
}

func TestEncodeIDOrdering(t *testing.T) {
	ids := []int64{-1 << 40, -2, -1, 0, 1, 2, 255, 256, 1 << 40}
	for i := 1; i < len(ids); i++ {
		if bytes.Compare(EncodeID(ids[i-1]), EncodeID(ids[i])) >= 0 {
			t.Errorf("EncodeID(%d) !< EncodeID(%d)", ids[i-1], ids[i])
		}
	}
	for _, id := range ids {
		got, err := DecodeID(EncodeID(id))
		if err != nil || got != id {
			t.Errorf("DecodeID(EncodeID(%d)) = %d, %v", id, got, err)
		}
	}
}

func TestPrefixEnd(t *testing.T) {
	if got := PrefixEnd([]byte("person/")); !bytes.Equal(got, []byte("person0")) {
		t.Errorf("PrefixEnd = %q", got)
	}
	if got := PrefixEnd([]byte{0x01, 0xff}); !bytes.Equal(got, []byte{0x02}) {
		t.Errorf("PrefixEnd = %v", got)
	}
	if got := PrefixEnd([]byte{0xff}); got != nil {
		t.Errorf("PrefixEnd all-0xff = %v, want nil", got)
	}
}

func TestRegistryUnknownEngine(t *testing.T) {
	_, err := New(context.Background(), "does-not-exist", nil)
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("New unknown = %v, want *ConfigError", err)
	}
}

func TestApplyFirstOnly(t *testing.T) {
	persons := []Person{
		{ID: 1, Name: "a", Age: 10},
		{ID: 2, Name: "b", Age: 20},
		{ID: 3, Name: "b", Age: 30},
	}

	changed := Apply(persons, SetFields(MatchName("b"), "c", 5), true)
	if len(changed) != 1 || changed[0] != (Person{ID: 2, Name: "c", Age: 5}) {
		t.Errorf("first only = %v", changed)
	}
	if persons[1].Name != "b" {
		t.Error("Apply must not modify its input")
	}

	changed = Apply(persons, AddAge(1), false)
	if len(changed) != 3 || changed[2].Age != 31 {
		t.Errorf("all = %v", changed)
	}
	if got := Apply(persons, SetFields(MatchIDs(nil), "x", 1), false); got != nil {
		t.Errorf("no match = %v", got)
	}
}
