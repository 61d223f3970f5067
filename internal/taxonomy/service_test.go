// service_test.go provides the shared database fixture for the engine's
// integration tests plus the mutation-path tests themselves. Tests are
// skipped if PostgreSQL is not available.
package taxonomy

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"markethub/internal/apperr"
	"markethub/internal/database"
	"markethub/internal/models"
	"markethub/internal/store"
)

func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "markethub")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "markethub")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

func testCountry(t *testing.T, db *sql.DB) string {
	t.Helper()
	country := "T" + strings.ToUpper(uuid.NewString()[:6])
	t.Cleanup(func() {
		db.Exec("UPDATE categories SET parent_id = NULL WHERE country = $1", country)
		db.Exec("DELETE FROM categories WHERE country = $1", country)
	})
	return country
}

func cleanProducts(t *testing.T, db *sql.DB, names ...string) {
	t.Helper()
	for _, name := range names {
		db.Exec("DELETE FROM products WHERE name = $1", name)
	}
}

// recordingEvents counts committed-mutation notifications.
type recordingEvents struct {
	mutations []Mutation
}

func (r *recordingEvents) MutationCommitted(_ context.Context, m Mutation) {
	r.mutations = append(r.mutations, m)
}

type fixture struct {
	db         *sql.DB
	service    *Service
	categories *store.CategoryStore
	products   *store.ProductStore
	events     *recordingEvents
	country    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testDB(t)
	categories := store.NewCategoryStore(db)
	products := store.NewProductStore(db)
	events := &recordingEvents{}
	return &fixture{
		db:         db,
		service:    NewService(categories, products, store.NewAuditStore(db), events),
		categories: categories,
		products:   products,
		events:     events,
		country:    testCountry(t, db),
	}
}

func (f *fixture) mustCreate(t *testing.T, in CreateInput) *models.Category {
	t.Helper()
	if in.Country == "" {
		in.Country = f.country
	}
	if in.ActorID == "" {
		in.ActorID = "test-admin"
	}
	created, err := f.service.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create category %q: %v", in.Name, err)
	}
	return created
}

func strPtr(s string) *string { return &s }

func TestServiceCreateSlugSuffixing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The name guard is scoped per parent, the slug guard per country, so
	// a "Phones" under three different roots exercises the suffix probing.
	want := []string{"phones", "phones-2", "phones-3"}
	for i, rootName := range []string{"Telecom", "Accessories", "Repair"} {
		root := f.mustCreate(t, CreateInput{Name: rootName})
		c, err := f.service.Create(ctx, CreateInput{
			Name:     "Phones",
			ParentID: &root.ID,
			Country:  f.country,
			ActorID:  "test-admin",
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if c.Slug != want[i] {
			t.Errorf("slug %d: got %q, want %q", i, c.Slug, want[i])
		}
	}
}

func TestServiceCreateDuplicateNameConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreate(t, CreateInput{Name: "Fashion"})
	_, err := f.service.Create(ctx, CreateInput{Name: "  FASHION ", Country: f.country, ActorID: "test-admin"})
	if !apperr.IsConflict(err) {
		t.Fatalf("expected Conflict for duplicate name, got %v", err)
	}

	// Same name under a different parent is a different scope.
	root := f.mustCreate(t, CreateInput{Name: "Apparel"})
	if _, err := f.service.Create(ctx, CreateInput{
		Name:     "Fashion",
		ParentID: &root.ID,
		Country:  f.country,
		ActorID:  "test-admin",
	}); err != nil {
		t.Fatalf("same name under different parent should pass: %v", err)
	}
}

func TestServiceCreateParentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missing := uuid.New()
	_, err := f.service.Create(ctx, CreateInput{Name: "Stray", ParentID: &missing, Country: f.country, ActorID: "test-admin"})
	if !apperr.IsNotFound(err) {
		t.Fatalf("missing parent: expected NotFound, got %v", err)
	}

	root := f.mustCreate(t, CreateInput{Name: "Electronics"})
	child := f.mustCreate(t, CreateInput{Name: "Phones", ParentID: &root.ID})

	_, err = f.service.Create(ctx, CreateInput{Name: "Grandchild", ParentID: &child.ID, Country: f.country, ActorID: "test-admin"})
	if !apperr.IsKind(err, apperr.KindInvalidHierarchy) {
		t.Fatalf("level-1 parent: expected InvalidHierarchy, got %v", err)
	}

	if child.Path != "electronics/phones" {
		t.Errorf("child path: got %q", child.Path)
	}
}

func TestServiceCreateRequiresUsableName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, CreateInput{Name: "   ", Country: f.country, ActorID: "test-admin"})
	if !apperr.IsKind(err, apperr.KindInvalidRequest) {
		t.Fatalf("blank name: expected InvalidRequest, got %v", err)
	}

	_, err = f.service.Create(ctx, CreateInput{Name: "!!!", Country: f.country, ActorID: "test-admin"})
	if !apperr.IsKind(err, apperr.KindInvalidRequest) {
		t.Fatalf("unsluggable name: expected InvalidRequest, got %v", err)
	}
}

func TestServiceUpdateRootSlugRepairsChildPaths(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.mustCreate(t, CreateInput{Name: "Gadgets"})
	child := f.mustCreate(t, CreateInput{Name: "Drones", ParentID: &root.ID})
	if child.Path != "gadgets/drones" {
		t.Fatalf("initial child path: %q", child.Path)
	}

	updated, err := f.service.Update(ctx, root.ID, UpdateInput{
		Slug:    strPtr("tech"),
		ActorID: "test-admin",
	})
	if err != nil {
		t.Fatalf("update root slug: %v", err)
	}
	if updated.Path != "tech" {
		t.Errorf("root path: got %q, want %q", updated.Path, "tech")
	}

	reloaded, err := f.service.Get(ctx, child.ID)
	if err != nil {
		t.Fatalf("reload child: %v", err)
	}
	if reloaded.Path != "tech/drones" {
		t.Errorf("child path not repaired: got %q, want %q", reloaded.Path, "tech/drones")
	}
}

func TestServiceUpdateRejectsSelfParent(t *testing.T) {
	f := newFixture(t)
	root := f.mustCreate(t, CreateInput{Name: "Loop"})

	_, err := f.service.Update(context.Background(), root.ID, UpdateInput{
		Parent:  OptionalParent{Set: true, ID: &root.ID},
		ActorID: "test-admin",
	})
	if !apperr.IsKind(err, apperr.KindInvalidRequest) {
		t.Fatalf("self-parent: expected InvalidRequest, got %v", err)
	}
}

func TestServiceUpdateRootWithChildrenCannotBecomeChild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.mustCreate(t, CreateInput{Name: "Sports"})
	f.mustCreate(t, CreateInput{Name: "Cycling", ParentID: &root.ID})
	other := f.mustCreate(t, CreateInput{Name: "Outdoors"})

	_, err := f.service.Update(ctx, root.ID, UpdateInput{
		Parent:  OptionalParent{Set: true, ID: &other.ID},
		ActorID: "test-admin",
	})
	if !apperr.IsKind(err, apperr.KindInvalidHierarchy) {
		t.Fatalf("expected InvalidHierarchy, got %v", err)
	}
}

func TestServiceUpdateKeepsSlugWhenNothingRelevantChanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.mustCreate(t, CreateInput{Name: "Books"})
	updated, err := f.service.Update(ctx, root.ID, UpdateInput{
		Description: strPtr("printed things"),
		ActorID:     "test-admin",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Slug != root.Slug {
		t.Errorf("slug churned: got %q, want %q", updated.Slug, root.Slug)
	}
	if updated.Description != "printed things" {
		t.Errorf("description not applied: %q", updated.Description)
	}
}

func TestServiceReorderBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.mustCreate(t, CreateInput{Name: "Alpha"})
	b := f.mustCreate(t, CreateInput{Name: "Beta"})

	err := f.service.Reorder(ctx, []ReorderItem{
		{ID: a.ID, ParentID: nil, SortOrder: 5},
		{ID: b.ID, ParentID: nil, SortOrder: 1},
	}, false, "test-admin")
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}

	reloaded, err := f.service.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.SortOrder != 5 {
		t.Errorf("sort order: got %d, want 5", reloaded.SortOrder)
	}
}

func TestServiceReorderRejectsImplicitParentChangeInFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.mustCreate(t, CreateInput{Name: "First"})
	b := f.mustCreate(t, CreateInput{Name: "Second"})

	// One bad entry rejects the whole batch: the valid entry for a must not
	// be applied either.
	err := f.service.Reorder(ctx, []ReorderItem{
		{ID: a.ID, ParentID: nil, SortOrder: 42},
		{ID: b.ID, ParentID: &a.ID, SortOrder: 0},
	}, false, "test-admin")
	if !apperr.IsKind(err, apperr.KindInvalidRequest) {
		t.Fatalf("expected InvalidRequest, got %v", err)
	}

	reloaded, err := f.service.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.SortOrder == 42 {
		t.Error("valid entry from a rejected batch was applied")
	}
}

func TestServiceReorderMoveWithExplicitFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.mustCreate(t, CreateInput{Name: "Garden"})
	floater := f.mustCreate(t, CreateInput{Name: "Pots"})

	err := f.service.Reorder(ctx, []ReorderItem{
		{ID: floater.ID, ParentID: &root.ID, SortOrder: 0},
	}, true, "test-admin")
	if err != nil {
		t.Fatalf("reorder with parent change: %v", err)
	}

	moved, err := f.service.Get(ctx, floater.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if moved.Level != models.LevelChild {
		t.Errorf("level: got %d, want %d", moved.Level, models.LevelChild)
	}
	if moved.Path != "garden/pots" {
		t.Errorf("path: got %q, want %q", moved.Path, "garden/pots")
	}
}

func TestServiceTreeRollsUpUsage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.mustCreate(t, CreateInput{Name: "Music"})
	child := f.mustCreate(t, CreateInput{Name: "Guitars", ParentID: &root.ID})

	names := []string{"t-tree-p1", "t-tree-p2"}
	t.Cleanup(func() { cleanProducts(t, f.db, names...) })
	if _, err := f.products.Create(ctx, &models.Product{Name: names[0], CategoryID: &root.ID}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := f.products.Create(ctx, &models.Product{Name: names[1], SubcategoryID: &child.ID}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	forest, err := f.service.Tree(ctx, store.ListFilter{Country: f.country})
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	var musicNode *Node
	for _, n := range forest {
		if n.ID == root.ID {
			musicNode = n
		}
	}
	if musicNode == nil {
		t.Fatal("root not in tree")
	}
	if musicNode.UsedByProducts != 2 {
		t.Errorf("rolled-up usage: got %d, want 2", musicNode.UsedByProducts)
	}
}

func TestServiceMutationsEmitEvents(t *testing.T) {
	f := newFixture(t)

	f.mustCreate(t, CreateInput{Name: "Evented"})
	if len(f.events.mutations) != 1 {
		t.Fatalf("events: got %d, want 1", len(f.events.mutations))
	}
	if f.events.mutations[0].Action != models.AuditCreate {
		t.Errorf("event action: got %s", f.events.mutations[0].Action)
	}
}
