package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockbar/stockbar/internal/platform/httpx"
	"github.com/stockbar/stockbar/internal/rbac"
	"github.com/stockbar/stockbar/internal/shared"
)

// Handler wires HTTP endpoints for one order kind. The same handler type
// serves /purchases and /sales, differing only in kind and route guards.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	kind      Kind
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs an order handler for the given kind.
func NewHandler(logger *slog.Logger, service *Service, kind Kind, rbacMW rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		kind:      kind,
		rbac:      rbacMW,
		validator: validator.New(),
	}
}

// MountRoutes registers routes relative to the kind's mount point.
func (h *Handler) MountRoutes(r chi.Router) {
	viewPerm := string(h.kind) + "s.view"
	managePerm := string(h.kind) + "s.manage"
	voidPerm := string(h.kind) + "s.void"

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(viewPerm, managePerm))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Get("/{id}/lines", h.lines)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(managePerm))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(voidPerm))
		r.Put("/{id}/status", h.changeStatus)
		r.Delete("/{id}", h.remove)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rows, total, err := h.service.List(r.Context(), h.kind, filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	page := filter.Offset/maxInt(filter.Limit, 1) + 1
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       rows,
		"pagination": shared.NewPagination(page, filter.Limit, total),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	order, err := h.service.Get(r.Context(), h.kind, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": order})
}

func (h *Handler) lines(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	lines, err := h.service.Lines(r.Context(), h.kind, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": lines})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CreateOrderInput{
		Kind:           h.kind,
		CounterpartyID: req.CounterpartyID,
		Total:          req.Total,
		Status:         Status(req.Status),
		InvoiceNumber:  req.InvoiceNumber,
		Lines:          toLineInputs(req.Lines),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		ActorID:        actorID(r),
	}
	if req.OrderDate != nil {
		input.OrderDate = *req.OrderDate
	}

	order, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"data": order})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	var req updateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := UpdateOrderInput{
		CounterpartyID: req.CounterpartyID,
		Total:          req.Total,
		InvoiceNumber:  req.InvoiceNumber,
		Lines:          toLineInputs(req.Lines),
		ActorID:        actorID(r),
	}
	if req.OrderDate != nil {
		input.OrderDate = *req.OrderDate
	}

	order, err := h.service.Edit(r.Context(), h.kind, id, input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": order})
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	var req changeStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	order, err := h.service.ChangeStatus(r.Context(), h.kind, id, Status(req.Status), req.Reason, actorID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": order})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	if err := h.service.Delete(r.Context(), h.kind, id, actorID(r)); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// insufficientStockProblem extends the problem body with the data the caller
// needs to explain the failure.
type insufficientStockProblem struct {
	httpx.ProblemDetail
	ProductID int64 `json:"product_id"`
	Requested int   `json:"requested"`
	Available int   `json:"available"`
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var vErr *ValidationError
	var stockErr *InsufficientStockError
	switch {
	case errors.As(err, &vErr):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", vErr.Error())
	case errors.As(err, &stockErr):
		httpx.JSON(w, http.StatusConflict, insufficientStockProblem{
			ProblemDetail: httpx.ProblemDetail{Title: "Insufficient Stock", Status: http.StatusConflict, Detail: stockErr.Error()},
			ProductID:     stockErr.ProductID,
			Requested:     stockErr.Requested,
			Available:     stockErr.Available,
		})
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyVoided), errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		if httpx.RespondError(w, err) {
			return
		}
		h.logger.Error("order operation failed", slog.String("kind", string(h.kind)), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	filter := ListFilter{Limit: 50}
	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		status := Status(s)
		if !status.Valid() {
			return filter, errors.New("invalid status filter")
		}
		filter.Status = &status
	}
	if s := q.Get("counterparty_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return filter, errors.New("invalid counterparty filter")
		}
		filter.CounterpartyID = &id
	}
	if s := q.Get("from"); s != "" {
		from, err := time.Parse("2006-01-02", s)
		if err != nil {
			return filter, errors.New("invalid from date")
		}
		filter.DateFrom = &from
	}
	if s := q.Get("to"); s != "" {
		to, err := time.Parse("2006-01-02", s)
		if err != nil {
			return filter, errors.New("invalid to date")
		}
		to = to.Add(24*time.Hour - time.Nanosecond)
		filter.DateTo = &to
	}
	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 || limit > 500 {
			return filter, errors.New("invalid limit")
		}
		filter.Limit = limit
	}
	if s := q.Get("offset"); s != "" {
		offset, err := strconv.Atoi(s)
		if err != nil || offset < 0 {
			return filter, errors.New("invalid offset")
		}
		filter.Offset = offset
	}
	return filter, nil
}

func actorID(r *http.Request) int64 {
	if principal := shared.PrincipalFromContext(r.Context()); principal != nil {
		return principal.UserID
	}
	return 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
