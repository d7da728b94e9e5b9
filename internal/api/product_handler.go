package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MorseWayne/bp_store/internal/domain"
	"github.com/MorseWayne/bp_store/internal/resp"
	"github.com/MorseWayne/bp_store/internal/service"
)

// ProductHandler 商品尺码库存的HTTP处理器
type ProductHandler struct {
	inventoryService service.InventoryService
	logger           *zap.Logger
}

// NewProductHandler 创建商品处理器实例
func NewProductHandler(inventoryService service.InventoryService, logger *zap.Logger) *ProductHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductHandler{inventoryService: inventoryService, logger: logger}
}

// ListSizes 尺码库存列表
// GET /products/sizes?productId=
func (h *ProductHandler) ListSizes(c *gin.Context) {
	req := &domain.SizeListRequest{}
	if pid := strings.TrimSpace(c.Query("productId")); pid != "" {
		req.ProductID = &pid
	}

	sizes, err := h.inventoryService.ListSizes(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err, "list sizes")
		return
	}
	if sizes == nil {
		sizes = []*domain.ProductSize{}
	}
	resp.OK(c.Writer, sizes, requestID(c), "")
}

// UpdateSize 设置尺码的库存和/或状态
// PATCH /products/sizes
// 需要管理员权限
func (h *ProductHandler) UpdateSize(c *gin.Context) {
	var req domain.UpdateSizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}

	entry, err := h.inventoryService.UpdateSize(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.logger, err, "update size")
		return
	}

	h.logger.Info("size updated by admin",
		zap.String("request_id", requestID(c)),
		zap.String("product_id", entry.ProductID),
		zap.String("size", entry.Size),
		zap.Int("stock", entry.Stock),
		zap.String("status", string(entry.Status)))
	resp.OK(c.Writer, entry, requestID(c), "")
}
