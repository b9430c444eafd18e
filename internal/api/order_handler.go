package api

import (
	"net/http"

	"github.com/alecgard/troupe/internal/ordering"
)

// orderHandler exposes the display order.
type orderHandler struct {
	orders OrderService
}

func newOrderHandler(orders OrderService) *orderHandler {
	return &orderHandler{orders: orders}
}

// Listing handles GET /api/v1/display-order.
func (h *orderHandler) Listing(w http.ResponseWriter, r *http.Request) {
	entries, err := h.orders.Listing(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if entries == nil {
		entries = []ordering.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": entries})
}

// Get handles GET /api/v1/admin/display-order: the stored rows, including
// ones whose target is hidden or gone.
func (h *orderHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.orders.Session(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": sess.Items()})
}

type saveOrderRequest struct {
	Items []struct {
		ItemType ordering.ItemType `json:"item_type"`
		ItemID   string            `json:"item_id"`
	} `json:"items"`
}

// Save handles PUT /api/v1/admin/display-order. The body order is the new
// order; display_order values in the body are ignored.
func (h *orderHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveOrderRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	items := make([]ordering.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = ordering.Item{ItemType: it.ItemType, ItemID: it.ItemID}
	}

	sess, err := h.orders.Save(r.Context(), items)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	auditLog(r, "display_order.save", "display_order", "", "items", sess.Len())
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": sess.Items()})
}

// Move handles POST /api/v1/admin/display-order/move.
func (h *orderHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From *int `json:"from" validate:"required"`
		To   *int `json:"to" validate:"required"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	sess, err := h.orders.Move(r.Context(), *req.From, *req.To)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	auditLog(r, "display_order.move", "display_order", "", "from", *req.From, "to", *req.To)
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": sess.Items()})
}

// Initialize handles POST /api/v1/admin/display-order/initialize. It runs
// unconditionally; a non-empty order gains duplicate rows until the next
// save.
func (h *orderHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	items, err := h.orders.Initialize(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	auditLog(r, "display_order.initialize", "display_order", "", "items", len(items))
	writeJSON(w, http.StatusCreated, map[string]interface{}{"items": items})
}

// invalidateListing drops the cached public listing after an artist changed.
func invalidateListing(r *http.Request, l ListingInvalidator) {
	if l != nil {
		l.InvalidateListing(r.Context())
	}
}
