package listing

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0712345678", "0712345678"},
		{"+254712345678", "254712345678"},
		{" 0712 345 678 ", "0712345678"},
	}
	for _, tc := range cases {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCategoryMatches(t *testing.T) {
	cases := []struct {
		stored    string
		requested string
		want      bool
	}{
		{"Farm Produce", "Farm Produce", true},
		{"Farm Produce", "Shops", false},
		{CategoryTransport, CategoryTransportPickups, true},
		{CategoryTransport, CategoryTransportRiders, false},
		{CategoryTransportLorries, CategoryTransportLorries, true},
	}
	for _, tc := range cases {
		if got := CategoryMatches(tc.stored, tc.requested); got != tc.want {
			t.Fatalf("CategoryMatches(%q, %q) = %v, want %v", tc.stored, tc.requested, got, tc.want)
		}
	}
}

func TestMemoryCreateDefaults(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	l := &Listing{
		Village:       "Sega",
		Category:      "Farm Produce",
		Name:          "Mama Jane Shop",
		Description:   "Maize seeds for sale",
		ContactNumber: "+254712345678",
		OwnerCallerID: "254712345678",
	}
	id, err := repo.Create(ctx, l)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" || l.ID != id {
		t.Fatalf("id = %q, listing id = %q", id, l.ID)
	}
	if l.Visibility != VisibilityHidden {
		t.Fatalf("default visibility = %q, want HIDDEN", l.Visibility)
	}
	if l.RoutingToken == "" || l.RoutingToken == l.ID {
		t.Fatalf("routing token = %q", l.RoutingToken)
	}
	if l.ContactNumber != "254712345678" {
		t.Fatalf("contact not normalized: %q", l.ContactNumber)
	}
}

func TestMemoryFindOrdersAndPages(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository().(*memoryRepo)
	base := time.Now()
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for _, name := range []string{"first", "second", "third", "fourth", "fifth"} {
		if _, err := repo.Create(ctx, &Listing{
			Village: "Bumala", Category: "Shops", Name: name, ContactNumber: "0712345678",
		}); err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
	}
	// different village must not surface
	if _, err := repo.Create(ctx, &Listing{
		Village: "Sega", Category: "Shops", Name: "elsewhere", ContactNumber: "0712345678",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, more, err := repo.FindByVillageCategory(ctx, "Bumala", "Shops", 0, 3)
	if err != nil {
		t.Fatalf("Find page 0: %v", err)
	}
	if !more {
		t.Fatal("expected a second page")
	}
	if len(got) != 3 || got[0].Name != "fifth" || got[2].Name != "third" {
		t.Fatalf("page 0 = %+v", names(got))
	}

	got, more, err = repo.FindByVillageCategory(ctx, "Bumala", "Shops", 1, 3)
	if err != nil {
		t.Fatalf("Find page 1: %v", err)
	}
	if more {
		t.Fatal("unexpected third page")
	}
	if len(got) != 2 || got[0].Name != "second" {
		t.Fatalf("page 1 = %+v", names(got))
	}

	got, more, err = repo.FindByVillageCategory(ctx, "Bumala", "Shops", 5, 3)
	if err != nil || more || len(got) != 0 {
		t.Fatalf("out-of-range page: %v %v %v", names(got), more, err)
	}
}

func TestMemoryLegacyTransportSurfacesUnderPickups(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	if _, err := repo.Create(ctx, &Listing{
		Village: "Murende", Category: CategoryTransport, Name: "old pickup", ContactNumber: "0712345678",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(ctx, &Listing{
		Village: "Murende", Category: CategoryTransportPickups, Name: "new pickup", ContactNumber: "0712345678",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, _, err := repo.FindByVillageCategory(ctx, "Murende", CategoryTransportPickups, 0, 10)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d listings, want 2: %v", len(got), names(got))
	}

	got, _, err = repo.FindByVillageCategory(ctx, "Murende", CategoryTransportRiders, 0, 10)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("legacy rows leaked into Riders: %v", names(got))
	}
}

func TestContactForRoutingGatesVisibility(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	hidden := &Listing{
		Village: "Sega", Category: "Shops", Name: "hidden shop",
		ContactNumber: "0712345678", Visibility: VisibilityHidden,
	}
	public := &Listing{
		Village: "Sega", Category: "Shops", Name: "public shop",
		ContactNumber: "0798765432", Visibility: VisibilityPublic,
	}
	routedOnly := &Listing{
		Village: "Sega", Category: "Shops", Name: "routed shop",
		ContactNumber: "0700112233", Visibility: VisibilityGatewayRouted,
	}
	for _, l := range []*Listing{hidden, public, routedOnly} {
		if _, err := repo.Create(ctx, l); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	v, routed, err := repo.ContactForRouting(ctx, hidden.ID)
	if err != nil {
		t.Fatalf("ContactForRouting: %v", err)
	}
	if !routed || strings.Contains(v, "0712345678") {
		t.Fatalf("hidden contact leaked: routed=%v value=%q", routed, v)
	}
	if v != hidden.RoutingToken {
		t.Fatalf("value = %q, want routing token %q", v, hidden.RoutingToken)
	}

	v, routed, err = repo.ContactForRouting(ctx, public.ID)
	if err != nil {
		t.Fatalf("ContactForRouting: %v", err)
	}
	if routed || v != "0798765432" {
		t.Fatalf("public contact: routed=%v value=%q", routed, v)
	}

	v, routed, err = repo.ContactForRouting(ctx, routedOnly.ID)
	if err != nil {
		t.Fatalf("ContactForRouting: %v", err)
	}
	if !routed || v != routedOnly.RoutingToken {
		t.Fatalf("gateway-routed contact: routed=%v value=%q", routed, v)
	}

	if _, _, err := repo.ContactForRouting(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV"); err != ErrNotFound {
		t.Fatalf("missing id: err = %v, want ErrNotFound", err)
	}
}

func names(ls []Listing) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.Name
	}
	return out
}
