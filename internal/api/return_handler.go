package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MorseWayne/bp_store/internal/domain"
	"github.com/MorseWayne/bp_store/internal/resp"
	"github.com/MorseWayne/bp_store/internal/service"
)

// ReturnHandler 退换货相关的HTTP处理器
type ReturnHandler struct {
	returnService service.ReturnService
	logger        *zap.Logger
}

// NewReturnHandler 创建退换货处理器实例
func NewReturnHandler(returnService service.ReturnService, logger *zap.Logger) *ReturnHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReturnHandler{returnService: returnService, logger: logger}
}

// CreateReturn 顾客提交退换货申请
// POST /returns
func (h *ReturnHandler) CreateReturn(c *gin.Context) {
	var req domain.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}

	result, err := h.returnService.Create(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.logger, err, "create return request")
		return
	}
	resp.Created(c.Writer, result, requestID(c), "")
}

// ListReturns 申请列表
// GET /returns?status=
// 需要管理员权限
func (h *ReturnHandler) ListReturns(c *gin.Context) {
	req := &domain.ReturnListRequest{}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err := domain.ParseReturnStatus(raw)
		if err != nil {
			writeError(c, h.logger, err, "list return requests")
			return
		}
		req.Status = &status
	}

	list, err := h.returnService.List(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err, "list return requests")
		return
	}
	if list == nil {
		list = []*domain.ReturnRequest{}
	}
	resp.OK(c.Writer, list, requestID(c), "")
}

// UpdateReturn 推进申请状态或标记退款完成
// PATCH /returns/{id}
// 需要管理员权限
func (h *ReturnHandler) UpdateReturn(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req domain.UpdateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}

	rr, err := h.returnService.Update(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, h.logger, err, "update return request")
		return
	}
	resp.OK(c.Writer, rr, requestID(c), "")
}

// DeleteReturn 删除申请，不回滚库存
// DELETE /returns/{id}
// 需要管理员权限
func (h *ReturnHandler) DeleteReturn(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.returnService.Delete(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err, "delete return request")
		return
	}
	resp.OK(c.Writer, gin.H{"deleted": true}, requestID(c), "")
}
