package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/kylelemons/godebug/pretty"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	bs, err := OpenBoltStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("OpenBoltStore: %v", err)
	}
	t.Cleanup(func() { bs.Close() })
	return map[string]Store{
		"mem":  NewMemStore(),
		"bolt": bs,
	}
}

func TestAppendAndGet(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			r := Record{ID: "#10", TypeName: "CARTESIAN_POINT", RawData: "('',(0.,0.,0.))", Lineno: 3, EntityType: Simple}
			if err := s.Append(r); err != nil {
				t.Fatalf("Append: %v", err)
			}
			got, ok, err := s.Get("#10")
			if err != nil || !ok {
				t.Fatalf("Get(#10) = %v, %v, %v", got, ok, err)
			}
			if diff := pretty.Compare(got, r); diff != "" {
				t.Errorf("Get(#10) mismatch (-got +want):\n%s", diff)
			}
			if _, ok, _ := s.Get("#99"); ok {
				t.Error("Get(#99) found a record that was never appended")
			}
		})
	}
}

func TestAppendDuplicateID(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			r := Record{ID: "#1", TypeName: "FOO", RawData: "()", EntityType: Simple}
			if err := s.Append(r); err != nil {
				t.Fatalf("first Append: %v", err)
			}
			if err := s.Append(r); !errors.Is(err, ErrDuplicateID) {
				t.Errorf("second Append = %v, want ErrDuplicateID", err)
			}
		})
	}
}

func TestAppendConstraintViolations(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Append(Record{ID: "#1", RawData: "()", EntityType: Simple}); !errors.Is(err, ErrMissingTypeName) {
				t.Errorf("simple without type_name: got %v, want ErrMissingTypeName", err)
			}
			if err := s.Append(Record{ID: "#2", TypeName: "FOO", RawData: "(A()B())", EntityType: Complex}); !errors.Is(err, ErrUnexpectedTypeName) {
				t.Errorf("complex with type_name: got %v, want ErrUnexpectedTypeName", err)
			}
		})
	}
}

func TestScanByTypeCaseInsensitive(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			must(t, s.Append(Record{ID: "#1", TypeName: "Cartesian_Point", RawData: "()", EntityType: Simple}))
			must(t, s.Append(Record{ID: "#2", TypeName: "CARTESIAN_POINT", RawData: "()", EntityType: Simple}))
			must(t, s.Append(Record{ID: "#3", TypeName: "LINE", RawData: "()", EntityType: Simple}))

			got, err := s.ScanByType("cartesian_point")
			if err != nil {
				t.Fatalf("ScanByType: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("got %d records, want 2: %+v", len(got), got)
			}
			if got[0].ID != "#1" || got[1].ID != "#2" {
				t.Errorf("got ids %s,%s, want insertion order #1,#2", got[0].ID, got[1].ID)
			}
		})
	}
}

func TestScanByCategory(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			must(t, s.Append(Record{ID: "#1", TypeName: "FOO", RawData: "()", EntityType: Simple}))
			must(t, s.Append(Record{ID: "#2", RawData: "(A()B())", EntityType: Complex}))

			simple, err := s.ScanByCategory(Simple)
			if err != nil || len(simple) != 1 || simple[0].ID != "#1" {
				t.Errorf("ScanByCategory(Simple) = %+v, %v", simple, err)
			}
			complex_, err := s.ScanByCategory(Complex)
			if err != nil || len(complex_) != 1 || complex_[0].ID != "#2" {
				t.Errorf("ScanByCategory(Complex) = %+v, %v", complex_, err)
			}
		})
	}
}

func TestAllPreservesInsertionOrder(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ids := []string{"#3", "#1", "#2"}
			for _, id := range ids {
				must(t, s.Append(Record{ID: id, TypeName: "FOO", RawData: "()", EntityType: Simple}))
			}
			all, err := s.All()
			if err != nil {
				t.Fatalf("All: %v", err)
			}
			if len(all) != len(ids) {
				t.Fatalf("got %d records, want %d", len(all), len(ids))
			}
			for i, id := range ids {
				if all[i].ID != id {
					t.Errorf("position %d: got %s, want %s", i, all[i].ID, id)
				}
			}
		})
	}
}

func TestReset(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			must(t, s.Append(Record{ID: "#1", TypeName: "FOO", RawData: "()", EntityType: Simple}))
			if err := s.Reset(); err != nil {
				t.Fatalf("Reset: %v", err)
			}
			all, err := s.All()
			if err != nil || len(all) != 0 {
				t.Errorf("after Reset, All() = %+v, %v, want empty", all, err)
			}
			if _, ok, _ := s.Get("#1"); ok {
				t.Error("after Reset, #1 still present")
			}
		})
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
