package taxonomy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"markethub/internal/apperr"
	"markethub/internal/models"
)

func TestCascadeSoftDeleteBlockedByUsage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.mustCreate(t, CreateInput{Name: "Toys"})
	child := f.mustCreate(t, CreateInput{Name: "Puzzles", ParentID: &root.ID})

	names := []string{"t-del-p1", "t-del-p2", "t-del-p3", "t-del-p4"}
	t.Cleanup(func() { cleanProducts(t, f.db, names...) })
	for _, name := range names {
		if _, err := f.products.Create(ctx, &models.Product{Name: name, SubcategoryID: &child.ID}); err != nil {
			t.Fatalf("create product: %v", err)
		}
	}

	_, err := f.service.SoftDelete(ctx, root.ID, DeleteOptions{ActorID: "test-admin"})
	if !apperr.IsConflict(err) {
		t.Fatalf("expected Conflict, got %v", err)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatal("not an application error")
	}
	if appErr.Details["used_by_products"] != 4 {
		t.Errorf("blocking count: got %v, want 4", appErr.Details["used_by_products"])
	}

	// Nothing was persisted by the refused delete.
	reloaded, err := f.service.Get(ctx, child.ID)
	if err != nil {
		t.Fatalf("reload child: %v", err)
	}
	if reloaded.IsDeleted {
		t.Error("refused delete still marked the child deleted")
	}
}

func TestCascadeForceDeleteWithReassignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.mustCreate(t, CreateInput{Name: "Closing"})
	child := f.mustCreate(t, CreateInput{Name: "Leftovers", ParentID: &root.ID})
	targetRoot := f.mustCreate(t, CreateInput{Name: "Surviving"})
	target := f.mustCreate(t, CreateInput{Name: "Keepers", ParentID: &targetRoot.ID})

	names := []string{"t-force-p1", "t-force-p2", "t-force-p3", "t-force-p4"}
	t.Cleanup(func() { cleanProducts(t, f.db, names...) })
	created := make([]uuid.UUID, 0, len(names))
	for i, name := range names {
		p := &models.Product{Name: name, SubcategoryID: &child.ID}
		if i%2 == 0 {
			p = &models.Product{Name: name, CategoryID: &root.ID}
		}
		got, err := f.products.Create(ctx, p)
		if err != nil {
			t.Fatalf("create product: %v", err)
		}
		created = append(created, got.ID)
	}

	res, err := f.service.SoftDelete(ctx, root.ID, DeleteOptions{
		Force:            true,
		ReassignTargetID: &target.ID,
		ActorID:          "test-admin",
	})
	if err != nil {
		t.Fatalf("forced delete: %v", err)
	}
	if res.ReassignedProducts != 4 {
		t.Errorf("reassigned: got %d, want 4", res.ReassignedProducts)
	}
	if len(res.Deleted) != 2 {
		t.Errorf("deleted closure: got %d ids, want 2", len(res.Deleted))
	}

	for _, id := range []uuid.UUID{root.ID, child.ID} {
		c, err := f.service.Get(ctx, id)
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
		if !c.IsDeleted {
			t.Errorf("category %s not deleted", c.Name)
		}
	}

	for _, id := range created {
		p, err := f.products.FindByID(ctx, id)
		if err != nil {
			t.Fatalf("reload product: %v", err)
		}
		if p.SubcategoryID == nil || *p.SubcategoryID != target.ID {
			t.Errorf("product %s not re-pointed at target", p.Name)
		}
		if p.CategoryID == nil || *p.CategoryID != targetRoot.ID {
			t.Errorf("product %s root ref not re-pointed at target's parent", p.Name)
		}
	}
}

func TestCascadeRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.mustCreate(t, CreateInput{Name: "Seasonal"})
	child := f.mustCreate(t, CreateInput{Name: "Winter", ParentID: &root.ID})

	if _, err := f.service.Restore(ctx, root.ID, "test-admin"); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("restore of a live category: expected InvalidState, got %v", err)
	}

	if _, err := f.service.SoftDelete(ctx, root.ID, DeleteOptions{ActorID: "test-admin"}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	ids, err := f.service.Restore(ctx, root.ID, "test-admin")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("restored closure: got %d ids, want 2", len(ids))
	}

	reloaded, err := f.service.Get(ctx, child.ID)
	if err != nil {
		t.Fatalf("reload child: %v", err)
	}
	if reloaded.IsDeleted {
		t.Error("child still deleted after restore")
	}
	// Visibility is an operator decision, not part of restore.
	if reloaded.IsActive {
		t.Error("restore must not re-activate the category")
	}
}

func TestCascadeReassignTargetValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.mustCreate(t, CreateInput{Name: "Source"})
	child := f.mustCreate(t, CreateInput{Name: "Inner", ParentID: &root.ID})

	if _, err := f.service.Reassign(ctx, root.ID, uuid.New(), false, "test-admin"); !apperr.IsNotFound(err) {
		t.Fatalf("missing target: expected NotFound, got %v", err)
	}
	if _, err := f.service.Reassign(ctx, root.ID, child.ID, true, "test-admin"); !apperr.IsKind(err, apperr.KindInvalidRequest) {
		t.Fatalf("target inside source set: expected InvalidRequest, got %v", err)
	}
}
