package products

import (
	"context"
	"fmt"

	"github.com/stockbar/stockbar/internal/shared"
)

// Service handles product business logic.
type Service struct {
	repo  Repository
	audit AuditPort
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// NewService constructs Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns products matching the filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a product.
func (s *Service) Create(ctx context.Context, product Product, actorID int64) (Product, error) {
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, actorID, "product:create", created.ID, nil)
	return created, nil
}

// Update modifies a product's catalogue fields.
func (s *Service) Update(ctx context.Context, id int64, product Product, actorID int64) (Product, error) {
	if err := s.repo.Update(ctx, id, product); err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, actorID, "product:update", id, nil)
	return s.repo.Get(ctx, id)
}

// SetActive toggles a product.
func (s *Service) SetActive(ctx context.Context, id int64, active bool, actorID int64) (Product, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, actorID, "product:status", id, map[string]any{"is_active": active})
	return s.repo.Get(ctx, id)
}

// AdjustStock applies a manual stock movement outside of any order, for
// counts, breakage and corrections. Outbound adjustments never drive stock
// below zero.
func (s *Service) AdjustStock(ctx context.Context, id int64, direction AdjustmentDirection, qty int, reason string, actorID int64) (Product, error) {
	if !direction.Valid() {
		return Product{}, fmt.Errorf("%w: unknown adjustment direction %q", shared.ErrValidationFailed, direction)
	}
	if qty <= 0 {
		return Product{}, fmt.Errorf("%w: quantity must be greater than zero", shared.ErrValidationFailed)
	}

	var applied bool
	var err error
	if direction == AdjustmentIn {
		applied, err = s.repo.AddStock(ctx, id, qty)
	} else {
		applied, err = s.repo.RemoveStock(ctx, id, qty)
	}
	if err != nil {
		return Product{}, err
	}
	if !applied {
		existing, getErr := s.repo.Get(ctx, id)
		if getErr != nil {
			return Product{}, getErr
		}
		return Product{}, &InsufficientStockError{ProductID: id, Requested: qty, Available: existing.Stock}
	}

	s.recordAudit(ctx, actorID, "product:stock:"+string(direction), id, map[string]any{
		"quantity": qty,
		"reason":   reason,
	})
	return s.repo.Get(ctx, id)
}

// Delete removes a product that was never ordered and holds no stock.
// Products with history can only be deactivated.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.Stock > 0 {
		return fmt.Errorf("%w: product still holds %d units", shared.ErrInUse, existing.Stock)
	}
	count, err := s.repo.OrderLineCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d order lines reference this product", shared.ErrInUse, count)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "product:delete", id, nil)
	return nil
}

const searchResultLimit = 20

// Search returns active products matching a free-text term.
func (s *Service) Search(ctx context.Context, term string) ([]Product, error) {
	if term == "" {
		return nil, fmt.Errorf("%w: search term is required", shared.ErrValidationFailed)
	}
	return s.repo.SearchByTerm(ctx, term, searchResultLimit)
}

// ListBelowMinStock returns products needing replenishment.
func (s *Service) ListBelowMinStock(ctx context.Context) ([]Product, error) {
	return s.repo.ListBelowMinStock(ctx)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, productID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: fmt.Sprintf("%d", productID),
		Meta:     meta,
	})
}
