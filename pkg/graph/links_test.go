package graph

import "testing"

func TestLinkStores(t *testing.T) {
	stores := map[string]func() LinkStore{
		"list": func() LinkStore { return NewLinkList() },
		"map":  func() LinkStore { return NewLinkMap() },
	}
	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			s := mk()
			for _, id := range []LinkID{5, 1, 3} {
				s.Put(&Link{ID: id, Type: "INT"})
			}
			if s.Len() != 3 {
				t.Fatalf("Len = %d, want 3", s.Len())
			}

			var ids []LinkID
			for _, l := range s.All() {
				ids = append(ids, l.ID)
			}
			if len(ids) != 3 || ids[0] != 1 || ids[1] != 3 || ids[2] != 5 {
				t.Errorf("All order = %v, want [1 3 5]", ids)
			}

			s.Put(&Link{ID: 3, Type: "FLOAT"})
			if l, _ := s.Get(3); l.Type != "FLOAT" {
				t.Errorf("Put did not replace link 3")
			}
			if s.Len() != 3 {
				t.Errorf("replace changed Len to %d", s.Len())
			}

			for _, id := range []LinkID{0, -10, -20, 4} {
				if _, ok := s.Get(id); ok {
					t.Errorf("Get(%d) found, want miss", id)
				}
			}

			s.Delete(1)
			s.Delete(99)
			if _, ok := s.Get(1); ok || s.Len() != 2 {
				t.Errorf("Delete(1) left Len %d", s.Len())
			}
		})
	}
}
