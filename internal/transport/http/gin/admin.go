package httpgin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/party-rsvp/internal/domain"
	"github.com/kirinyoku/party-rsvp/internal/service"
)

func filterFromQuery(c *gin.Context) domain.ConfirmationFilter {
	onlyTransport, _ := strconv.ParseBool(c.Query("transport"))
	onlyCompanions, _ := strconv.ParseBool(c.Query("companions"))

	return domain.ConfirmationFilter{
		Search:         c.Query("search"),
		OnlyTransport:  onlyTransport,
		OnlyCompanions: onlyCompanions,
	}
}

// @Summary   List confirmations
// @Security  AdminBearer
// @Param     search      query  string  false  "name or department"
// @Param     transport   query  bool    false  "only with transport"
// @Param     companions  query  bool    false  "only with companions"
// @Success   200  {array}   domain.Confirmation
// @Failure   401  {object}  ErrorResponse
// @Router    /admin/confirmations [get]
func handleListConfirmations(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Admin.List(c.Request.Context(), filterFromQuery(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// @Summary   Export confirmations as CSV
// @Security  AdminBearer
// @Produce   text/csv
// @Success   200  {string}  string
// @Router    /admin/confirmations.csv [get]
func handleExportCSV(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", `attachment; filename="confirmations.csv"`)
		c.Status(http.StatusOK)

		if err := svcs.Admin.ExportCSV(c.Request.Context(), c.Writer, filterFromQuery(c)); err != nil {
			_ = c.Error(err)
		}
	}
}

// @Summary   Dashboard totals
// @Security  AdminBearer
// @Success   200  {object}  domain.Stats
// @Router    /admin/stats [get]
func handleStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := svcs.Admin.Stats(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, st, "private, no-cache")
	}
}

// @Summary   Delete a confirmation
// @Security  AdminBearer
// @Param     id  path  int  true  "Confirmation ID"
// @Success   204
// @Failure   404  {object}  ErrorResponse
// @Router    /admin/confirmations/{id} [delete]
func handleDeleteConfirmation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Admin.Delete(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary   Mark boarding on the bus
// @Security  AdminBearer
// @Param     id   path  int              true  "Confirmation ID"
// @Param     req  body  EmbarkedRequest  true  "payload"
// @Success   204
// @Failure   404  {object}  ErrorResponse
// @Router    /admin/confirmations/{id}/embarked [patch]
func handleSetEmbarked(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req EmbarkedRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if err := svcs.Admin.SetEmbarked(c.Request.Context(), id, *req.Embarked); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
