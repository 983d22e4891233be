package venues

import (
	"context"
	"testing"

	"github.com/lineupwatch/lineupwatch/pkg/show"
)

type stubVenue struct{ name, id string }

func (s stubVenue) Name() string       { return s.name }
func (s stubVenue) Identifier() string { return s.id }
func (s stubVenue) FetchLineup(ctx context.Context, date string) ([]show.Show, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	a := stubVenue{"Comedy Cellar", "comedy_cellar"}
	b := stubVenue{"The Stand NYC", "the_stand_nyc"}

	r, err := NewRegistry(a, b)
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}

	if v, ok := r.Get(" Comedy_Cellar "); !ok || v.Name() != "Comedy Cellar" {
		t.Errorf("Get() = %v, %v", v, ok)
	}

	all := r.All()
	if len(all) != 2 || all[0].Identifier() != "comedy_cellar" || all[1].Identifier() != "the_stand_nyc" {
		t.Errorf("All() lost registration order: %v", all)
	}

	sel, err := r.Select([]string{"the_stand_nyc"})
	if err != nil || len(sel) != 1 || sel[0].Name() != "The Stand NYC" {
		t.Errorf("Select() = %v, %v", sel, err)
	}
	if _, err := r.Select([]string{"nope"}); err == nil {
		t.Error("Select() with unknown id should fail")
	}
	if sel, _ := r.Select(nil); len(sel) != 2 {
		t.Errorf("Select(nil) should return all venues, got %d", len(sel))
	}
}

func TestRegistryRejectsDuplicatesAndBlanks(t *testing.T) {
	if _, err := NewRegistry(stubVenue{"A", "x"}, stubVenue{"B", "X"}); err == nil {
		t.Error("expected duplicate identifier error")
	}
	if _, err := NewRegistry(stubVenue{"A", " "}); err == nil {
		t.Error("expected empty identifier error")
	}
	if _, err := NewRegistry(nil); err == nil {
		t.Error("expected nil venue error")
	}
}
