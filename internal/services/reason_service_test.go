package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-request-storage/internal/domain"
	"github.com/tbourn/go-request-storage/internal/repo"
)

type realReasonRepo struct{}

func (realReasonRepo) CreateReason(ctx context.Context, db *gorm.DB, r *domain.CancellationReason) error {
	return repo.CreateReason(ctx, db, r)
}

func (realReasonRepo) GetReason(ctx context.Context, db *gorm.DB, id string) (*domain.CancellationReason, error) {
	return repo.GetReason(ctx, db, id)
}

func (realReasonRepo) ListReasons(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.CancellationReason, int64, error) {
	return repo.ListReasons(ctx, db, offset, limit)
}

func (realReasonRepo) SaveReason(ctx context.Context, db *gorm.DB, r *domain.CancellationReason) error {
	return repo.SaveReason(ctx, db, r)
}

func (realReasonRepo) DeleteReason(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteReason(ctx, db, id)
}

func (realReasonRepo) CountRequestsByReason(ctx context.Context, db *gorm.DB, reasonID string) (int64, error) {
	return repo.CountRequestsByReason(ctx, db, reasonID)
}

const reasonID1 = "ee555555-5555-4555-8555-555555555555"

func newReasonFixture(t *testing.T) (*ReasonService, *RequestService) {
	t.Helper()
	db := newServicesDB(t)
	return NewReasonService(db, realReasonRepo{}), NewRequestService(db, realRequestRepo{})
}

func TestReasonCreate_RequiresActor(t *testing.T) {
	svc, _ := newReasonFixture(t)
	_, err := svc.Create(context.Background(), "", &domain.CancellationReason{Name: "Patron request"})
	if !errors.Is(err, ErrMissingActor) {
		t.Fatalf("expected ErrMissingActor, got %v", err)
	}
}

func TestReasonCreate_GeneratesIDAndStampsMetadata(t *testing.T) {
	svc, _ := newReasonFixture(t)

	out, err := svc.Create(context.Background(), actorA, &domain.CancellationReason{Name: "Patron request"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if out.ID == "" {
		t.Fatalf("expected generated ID")
	}
	if out.Metadata.CreatedByUserID != actorA {
		t.Fatalf("metadata not stamped: %+v", out.Metadata)
	}
}

func TestReasonCreate_DuplicateName(t *testing.T) {
	svc, _ := newReasonFixture(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, actorA, &domain.CancellationReason{Name: "Patron request"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := svc.Create(ctx, actorA, &domain.CancellationReason{Name: "Patron request"})
	if !errors.Is(err, ErrDuplicateReasonName) {
		t.Fatalf("expected ErrDuplicateReasonName, got %v", err)
	}
}

func TestReasonCreate_NameRequired(t *testing.T) {
	svc, _ := newReasonFixture(t)
	_, err := svc.Create(context.Background(), actorA, &domain.CancellationReason{})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Key != "name" {
		t.Fatalf("expected name validation error, got %v", err)
	}
}

func TestReasonUpdate_PreservesCreationMetadata(t *testing.T) {
	svc, _ := newReasonFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, actorA, &domain.CancellationReason{ID: reasonID1, Name: "Patron request"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	otherActor := "8b374513-4ac2-4f90-9dde-95b1f3d5f2e1"
	update := &domain.CancellationReason{Name: "Patron changed their mind", RequiresAdditionalInformation: true}
	if err := svc.Update(ctx, otherActor, reasonID1, update); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := svc.Get(ctx, reasonID1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Patron changed their mind" || !got.RequiresAdditionalInformation {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.Metadata.CreatedByUserID != actorA || !got.Metadata.CreatedDate.Equal(created.Metadata.CreatedDate) {
		t.Fatalf("creation metadata rewritten: %+v", got.Metadata)
	}
	if got.Metadata.UpdatedByUserID != otherActor {
		t.Fatalf("update stamp = %q", got.Metadata.UpdatedByUserID)
	}
}

func TestReasonUpdate_NotFound(t *testing.T) {
	svc, _ := newReasonFixture(t)
	err := svc.Update(context.Background(), actorA, reasonID1, &domain.CancellationReason{Name: "x"})
	if !errors.Is(err, ErrReasonNotFound) {
		t.Fatalf("expected ErrReasonNotFound, got %v", err)
	}
}

func TestReasonDelete_Unreferenced_OK(t *testing.T) {
	svc, _ := newReasonFixture(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, actorA, &domain.CancellationReason{ID: reasonID1, Name: "Patron request"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, reasonID1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, reasonID1); !errors.Is(err, ErrReasonNotFound) {
		t.Fatalf("expected reason gone, got %v", err)
	}
}

func TestReasonDelete_ReferencedByClosedRequest_Blocked(t *testing.T) {
	svc, reqSvc := newReasonFixture(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, actorA, &domain.CancellationReason{ID: reasonID1, Name: "Patron request"}); err != nil {
		t.Fatalf("Create reason: %v", err)
	}

	// The referencing request is long closed; the guard must still hold.
	r := validRequest(reqID1, itemA, nil)
	r.Status = domain.StatusClosedCancelled
	r.CancellationReasonID = reasonID1
	cancelled := time.Now().UTC()
	r.CancelledDate = &cancelled
	seedRequest(t, reqSvc, r)

	if err := svc.Delete(ctx, reasonID1); !errors.Is(err, ErrReasonInUse) {
		t.Fatalf("expected ErrReasonInUse, got %v", err)
	}
	if _, err := svc.Get(ctx, reasonID1); err != nil {
		t.Fatalf("blocked delete must leave the reason intact: %v", err)
	}
}

func TestReasonDelete_NotFound(t *testing.T) {
	svc, _ := newReasonFixture(t)
	if err := svc.Delete(context.Background(), reasonID1); !errors.Is(err, ErrReasonNotFound) {
		t.Fatalf("expected ErrReasonNotFound, got %v", err)
	}
}
