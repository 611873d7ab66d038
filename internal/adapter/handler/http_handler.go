package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rl1809/voucher-rush/internal/core/domain"
	"github.com/rl1809/voucher-rush/internal/core/service"
)

// userIDHeader carries the authenticated user, resolved by the gateway in
// front of this service.
const userIDHeader = "X-User-ID"

type HTTPHandler struct {
	orders *service.OrderService
	shops  *service.ShopService
	users  *service.UserService
	blogs  *service.BlogService
}

func NewHTTPHandler(
	orders *service.OrderService,
	shops *service.ShopService,
	users *service.UserService,
	blogs *service.BlogService,
) *HTTPHandler {
	return &HTTPHandler{orders: orders, shops: shops, users: users, blogs: blogs}
}

func (h *HTTPHandler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/api/voucher/{id}/seckill", h.Seckill).Methods(http.MethodPost)
	r.HandleFunc("/api/shop/{id}", h.GetShop).Methods(http.MethodGet)
	r.HandleFunc("/api/shop/{id}/hot", h.GetHotShop).Methods(http.MethodGet)
	r.HandleFunc("/api/shop/{id}/warm", h.WarmShop).Methods(http.MethodPost)
	r.HandleFunc("/api/shop", h.UpdateShop).Methods(http.MethodPut)
	r.HandleFunc("/api/user/sign", h.Sign).Methods(http.MethodPost)
	r.HandleFunc("/api/user/sign/streak", h.SignStreak).Methods(http.MethodGet)
	r.HandleFunc("/api/blog/{id}/like", h.Like).Methods(http.MethodPost)
	r.HandleFunc("/api/blog/{id}/likers", h.TopLikers).Methods(http.MethodGet)
	return r
}

type seckillResponse struct {
	Success bool   `json:"success"`
	OrderID uint64 `json:"order_id,omitempty"`
	Message string `json:"message,omitempty"`
}

func (h *HTTPHandler) Seckill(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, seckillResponse{Message: "missing user"})
		return
	}
	voucherID, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, seckillResponse{Message: "invalid voucher id"})
		return
	}

	orderID, err := h.orders.Seckill(r.Context(), userID, voucherID)
	if err != nil {
		status := http.StatusInternalServerError
		message := "internal error"
		switch {
		case errors.Is(err, service.ErrOutOfStock):
			status = http.StatusGone
			message = "sold out"
		case errors.Is(err, service.ErrDuplicateOrder):
			status = http.StatusConflict
			message = "already ordered"
		case errors.Is(err, service.ErrVoucherNotFound):
			status = http.StatusNotFound
			message = "voucher not found"
		case errors.Is(err, service.ErrSaleNotStarted):
			status = http.StatusForbidden
			message = "sale not started"
		case errors.Is(err, service.ErrSaleEnded):
			status = http.StatusForbidden
			message = "sale ended"
		}
		writeJSON(w, status, seckillResponse{Message: message})
		return
	}

	writeJSON(w, http.StatusOK, seckillResponse{Success: true, OrderID: orderID})
}

func (h *HTTPHandler) GetShop(w http.ResponseWriter, r *http.Request) {
	h.serveShop(w, r, h.shops.GetByID)
}

func (h *HTTPHandler) GetHotShop(w http.ResponseWriter, r *http.Request) {
	h.serveShop(w, r, h.shops.GetHotByID)
}

func (h *HTTPHandler) serveShop(w http.ResponseWriter, r *http.Request, get func(ctx context.Context, id uint64) (*domain.Shop, error)) {
	shopID, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid shop id"})
		return
	}
	shop, err := get(r.Context(), shopID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}
	if shop == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "shop not found"})
		return
	}
	writeJSON(w, http.StatusOK, shop)
}

func (h *HTTPHandler) WarmShop(w http.ResponseWriter, r *http.Request) {
	shopID, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid shop id"})
		return
	}
	if err := h.shops.Warm(r.Context(), shopID, 0); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (h *HTTPHandler) UpdateShop(w http.ResponseWriter, r *http.Request) {
	var shop domain.Shop
	if err := json.NewDecoder(r.Body).Decode(&shop); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}
	if err := h.shops.Update(r.Context(), shop); err != nil {
		status := http.StatusInternalServerError
		message := "internal error"
		if errors.Is(err, service.ErrMissingShopID) {
			status = http.StatusBadRequest
			message = err.Error()
		}
		writeJSON(w, status, map[string]string{"message": message})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (h *HTTPHandler) Sign(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing user"})
		return
	}
	if err := h.users.Sign(r.Context(), userID, time.Now()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (h *HTTPHandler) SignStreak(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing user"})
		return
	}
	streak, err := h.users.SignStreak(r.Context(), userID, time.Now())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"streak": streak})
}

func (h *HTTPHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing user"})
		return
	}
	blogID, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid blog id"})
		return
	}
	if err := h.blogs.Like(r.Context(), userID, blogID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (h *HTTPHandler) TopLikers(w http.ResponseWriter, r *http.Request) {
	blogID, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid blog id"})
		return
	}
	likers, err := h.blogs.TopLikers(r.Context(), blogID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]uint64{"likers": likers})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func userFrom(r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.Header.Get(userIDHeader), 10, 64)
	return id, err == nil && id != 0
}

func pathID(r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
