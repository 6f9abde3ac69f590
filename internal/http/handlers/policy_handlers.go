package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/http/respond"
)

type PolicyHandlers struct{ policies domain.PolicyService }

func NewPolicyHandlers(policies domain.PolicyService) *PolicyHandlers {
	return &PolicyHandlers{policies: policies}
}

type policyReq struct {
	Sub string `json:"sub" binding:"required"`
	Obj string `json:"obj" binding:"required"`
	Act string `json:"act" binding:"required"`
}

func (h *PolicyHandlers) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.policies.GetPolicies())
}

func (h *PolicyHandlers) Add(c *gin.Context) {
	var r policyReq
	if err := c.ShouldBindJSON(&r); err != nil {
		respond.BadRequest(c, err)
		return
	}
	if err := h.policies.AddPolicy(r.Sub, r.Obj, r.Act); err != nil {
		respond.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PolicyHandlers) Remove(c *gin.Context) {
	var r policyReq
	if err := c.ShouldBindJSON(&r); err != nil {
		respond.BadRequest(c, err)
		return
	}
	if err := h.policies.RemovePolicy(r.Sub, r.Obj, r.Act); err != nil {
		respond.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
