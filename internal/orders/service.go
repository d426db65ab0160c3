package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/stockbar/stockbar/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, kind Kind, id int64) (*Order, error)
	Lines(ctx context.Context, kind Kind, orderID int64) ([]Line, error)
	List(ctx context.Context, kind Kind, filter ListFilter) ([]OrderWithCounterparty, int, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates order transactions against inventory. Every operation
// runs as one database transaction: on any failure no stock adjustment or row
// insertion survives.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem}
}

// LineInput describes one requested order line.
type LineInput struct {
	ProductID int64
	Quantity  int
	UnitPrice float64
}

// CreateOrderInput describes an order creation request.
type CreateOrderInput struct {
	Kind           Kind
	CounterpartyID int64
	Total          float64
	OrderDate      time.Time
	InvoiceNumber  *string
	Status         Status
	Lines          []LineInput
	IdempotencyKey string
	ActorID        int64
}

// UpdateOrderInput describes an edit of a pending order. The new lines replace
// the existing ones wholesale.
type UpdateOrderInput struct {
	CounterpartyID int64
	Total          float64
	OrderDate      time.Time
	InvoiceNumber  *string
	Lines          []LineInput
	ActorID        int64
}

// Create persists an order and applies its stock effect. Purchases increase
// each line product's stock and refresh its purchase price; sales decrement
// stock with an in-statement sufficiency check.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (*Order, error) {
	if !input.Kind.Valid() {
		return nil, validationErrorf("unknown order kind %q", input.Kind)
	}
	if input.CounterpartyID <= 0 {
		return nil, validationErrorf("counterparty is required")
	}
	status, err := resolveCreateStatus(input.Kind, input.Status)
	if err != nil {
		return nil, err
	}
	if err := validateLines(input.Lines); err != nil {
		return nil, err
	}

	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now().UTC()
	}

	insertedKey := false
	if input.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, string(input.Kind)); err != nil {
			return nil, err
		}
		insertedKey = true
	}

	var orderID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		active, err := tx.CounterpartyActive(ctx, input.Kind, input.CounterpartyID)
		if err != nil {
			return fmt.Errorf("verify counterparty: %w", err)
		}
		if !active {
			return validationErrorf("%s %d does not exist or is inactive", counterpartyNoun(input.Kind), input.CounterpartyID)
		}

		orderID, err = tx.InsertOrder(ctx, Order{
			Kind:           input.Kind,
			CounterpartyID: input.CounterpartyID,
			OrderDate:      orderDate,
			Total:          input.Total,
			Status:         status,
			InvoiceNumber:  input.InvoiceNumber,
			CreatedBy:      input.ActorID,
		})
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, lineReq := range input.Lines {
			if err := s.applyLine(ctx, tx, input.Kind, orderID, lineReq); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return nil, err
	}

	s.recordAudit(ctx, input.ActorID, fmt.Sprintf("%s:create", input.Kind), input.Kind, orderID, map[string]any{
		"counterparty_id": input.CounterpartyID,
		"total":           input.Total,
		"lines":           len(input.Lines),
	})
	return s.repo.Get(ctx, input.Kind, orderID)
}

// Edit replaces the lines and header fields of a pending order: the stock
// impact of every existing line is reversed, then the new lines are applied
// under the same sign and sufficiency rules as Create.
func (s *Service) Edit(ctx context.Context, kind Kind, id int64, input UpdateOrderInput) (*Order, error) {
	if !kind.Valid() {
		return nil, validationErrorf("unknown order kind %q", kind)
	}
	if input.CounterpartyID <= 0 {
		return nil, validationErrorf("counterparty is required")
	}
	if err := validateLines(input.Lines); err != nil {
		return nil, err
	}

	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now().UTC()
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		if existing.Status != StatusPending {
			return fmt.Errorf("%w: cannot edit a %s order", ErrInvalidState, statusNoun(existing.Status))
		}

		active, err := tx.CounterpartyActive(ctx, kind, input.CounterpartyID)
		if err != nil {
			return fmt.Errorf("verify counterparty: %w", err)
		}
		if !active {
			return validationErrorf("%s %d does not exist or is inactive", counterpartyNoun(kind), input.CounterpartyID)
		}

		oldLines, err := tx.GetLines(ctx, kind, id)
		if err != nil {
			return fmt.Errorf("load lines: %w", err)
		}
		if err := reverseLines(ctx, tx, kind, oldLines); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, kind, id); err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}
		if err := tx.UpdateHeader(ctx, kind, id, input.CounterpartyID, input.Total, Order{OrderDate: orderDate, InvoiceNumber: input.InvoiceNumber}); err != nil {
			return fmt.Errorf("update header: %w", err)
		}

		for _, lineReq := range input.Lines {
			if err := s.applyLine(ctx, tx, kind, id, lineReq); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, input.ActorID, fmt.Sprintf("%s:edit", kind), kind, id, map[string]any{
		"counterparty_id": input.CounterpartyID,
		"total":           input.Total,
		"lines":           len(input.Lines),
	})
	return s.repo.Get(ctx, kind, id)
}

// ChangeStatus moves an order through its lifecycle. Voiding reverses the
// stock effect of every line; reactivating a voided order reapplies it,
// re-validating sale stock sufficiency exactly as a fresh sale would.
// Completing an order never changes stock, and a completed order cannot
// return to pending.
func (s *Service) ChangeStatus(ctx context.Context, kind Kind, id int64, newStatus Status, reason string, actorID int64) (*Order, error) {
	if !kind.Valid() {
		return nil, validationErrorf("unknown order kind %q", kind)
	}
	if !newStatus.Valid() {
		return nil, validationErrorf("unknown status %q", newStatus)
	}

	var voided bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		current := existing.Status

		switch {
		case current == StatusVoided && newStatus == StatusVoided:
			return ErrAlreadyVoided
		case current == StatusCompleted && newStatus == StatusPending:
			return fmt.Errorf("%w: cannot return a completed order to pending", ErrInvalidState)
		}

		lines, err := tx.GetLines(ctx, kind, id)
		if err != nil {
			return fmt.Errorf("load lines: %w", err)
		}

		if newStatus == StatusVoided {
			if err := reverseLines(ctx, tx, kind, lines); err != nil {
				return err
			}
			voided = true
		} else if current == StatusVoided {
			// Reactivation reapplies the original stock effect.
			for _, line := range lines {
				if err := applyStock(ctx, tx, kind, line.ProductID, line.Quantity); err != nil {
					return err
				}
			}
		}

		var voidReason *string
		if newStatus == StatusVoided && reason != "" {
			voidReason = &reason
		}
		if err := tx.UpdateStatus(ctx, kind, id, newStatus, voidReason); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	action := fmt.Sprintf("%s:status:%s", kind, newStatus)
	meta := map[string]any{"status": newStatus}
	if voided {
		action = fmt.Sprintf("%s:void", kind)
		meta["reason"] = reason
		meta["voided_at"] = time.Now().UTC()
	}
	s.recordAudit(ctx, actorID, action, kind, id, meta)
	return s.repo.Get(ctx, kind, id)
}

// Void soft-cancels an order, reversing its stock effect.
func (s *Service) Void(ctx context.Context, kind Kind, id int64, reason string, actorID int64) (*Order, error) {
	return s.ChangeStatus(ctx, kind, id, StatusVoided, reason, actorID)
}

// Delete physically removes a voided order and its lines. Orders in any other
// status cannot be removed.
func (s *Service) Delete(ctx context.Context, kind Kind, id int64, actorID int64) error {
	if !kind.Valid() {
		return validationErrorf("unknown order kind %q", kind)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		if existing.Status != StatusVoided {
			return fmt.Errorf("%w: only voided orders can be deleted", ErrInvalidState)
		}
		if err := tx.DeleteLines(ctx, kind, id); err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}
		if err := tx.DeleteOrder(ctx, kind, id); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, fmt.Sprintf("%s:delete", kind), kind, id, nil)
	return nil
}

// Get fetches an order with its lines.
func (s *Service) Get(ctx context.Context, kind Kind, id int64) (*Order, error) {
	return s.repo.Get(ctx, kind, id)
}

// Lines fetches the line items of an order.
func (s *Service) Lines(ctx context.Context, kind Kind, id int64) ([]Line, error) {
	if _, err := s.repo.Get(ctx, kind, id); err != nil {
		return nil, err
	}
	return s.repo.Lines(ctx, kind, id)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, kind Kind, filter ListFilter) ([]OrderWithCounterparty, int, error) {
	return s.repo.List(ctx, kind, filter)
}

// applyLine validates the product reference, applies the stock effect of one
// new line and persists it. The subtotal is always computed server-side.
func (s *Service) applyLine(ctx context.Context, tx TxRepository, kind Kind, orderID int64, req LineInput) error {
	_, exists, err := tx.ProductStock(ctx, req.ProductID)
	if err != nil {
		return fmt.Errorf("load product %d: %w", req.ProductID, err)
	}
	if !exists {
		return validationErrorf("product %d does not exist", req.ProductID)
	}

	if err := applyStock(ctx, tx, kind, req.ProductID, req.Quantity); err != nil {
		return err
	}
	if kind == KindPurchase {
		if err := tx.SetPurchasePrice(ctx, req.ProductID, req.UnitPrice); err != nil {
			return fmt.Errorf("set purchase price: %w", err)
		}
	}

	line := Line{
		OrderID:   orderID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Subtotal:  float64(req.Quantity) * req.UnitPrice,
	}
	if err := tx.InsertLine(ctx, kind, line); err != nil {
		return fmt.Errorf("insert line: %w", err)
	}
	return nil
}

// applyStock applies the forward stock effect of a line: +qty for purchases,
// conditional -qty for sales.
func applyStock(ctx context.Context, tx TxRepository, kind Kind, productID int64, qty int) error {
	if kind == KindPurchase {
		if err := tx.AddStock(ctx, productID, qty); err != nil {
			return fmt.Errorf("add stock: %w", err)
		}
		return nil
	}
	applied, err := tx.RemoveStock(ctx, productID, qty)
	if err != nil {
		return fmt.Errorf("remove stock: %w", err)
	}
	if !applied {
		available, _, err := tx.ProductStock(ctx, productID)
		if err != nil {
			return fmt.Errorf("load stock: %w", err)
		}
		return &InsufficientStockError{ProductID: productID, Requested: qty, Available: available}
	}
	return nil
}

// reverseLines undoes the stock effect of existing lines: purchases give the
// quantity back (floored at zero), sales restore it.
func reverseLines(ctx context.Context, tx TxRepository, kind Kind, lines []Line) error {
	for _, line := range lines {
		if kind == KindPurchase {
			if err := tx.RemoveStockFloored(ctx, line.ProductID, line.Quantity); err != nil {
				return fmt.Errorf("reverse purchase line: %w", err)
			}
			continue
		}
		if err := tx.AddStock(ctx, line.ProductID, line.Quantity); err != nil {
			return fmt.Errorf("reverse sale line: %w", err)
		}
	}
	return nil
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return validationErrorf("at least one line is required")
	}
	for i, line := range lines {
		if line.ProductID <= 0 {
			return validationErrorf("line %d: product is required", i+1)
		}
		if line.Quantity <= 0 {
			return validationErrorf("line %d: quantity must be greater than zero", i+1)
		}
		if line.UnitPrice < 0 {
			return validationErrorf("line %d: unit price must not be negative", i+1)
		}
	}
	return nil
}

// resolveCreateStatus applies the per-kind creation rules: purchases are
// completed on creation, sales default to pending and may be completed
// immediately. Neither kind can be created voided.
func resolveCreateStatus(kind Kind, requested Status) (Status, error) {
	if kind == KindPurchase {
		if requested != "" && requested != StatusCompleted {
			return "", validationErrorf("purchases are created completed")
		}
		return StatusCompleted, nil
	}
	switch requested {
	case "":
		return StatusPending, nil
	case StatusPending, StatusCompleted:
		return requested, nil
	default:
		return "", validationErrorf("a sale cannot be created with status %q", requested)
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, kind Kind, orderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   string(kind),
		EntityID: fmt.Sprintf("%d", orderID),
		Meta:     meta,
	})
}

func counterpartyNoun(kind Kind) string {
	if kind == KindPurchase {
		return "supplier"
	}
	return "customer"
}

func statusNoun(status Status) string {
	switch status {
	case StatusCompleted:
		return "completed"
	case StatusVoided:
		return "voided"
	default:
		return "pending"
	}
}
