package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/forum-query-engine/services"
)

// ListHandler handles POST /-/v0/list.
// Request Body: services.ListQueryApiRequest
func (api *API) ListHandler(c *gin.Context) {
	var req services.ListQueryApiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBindingError(c, err)
		return
	}

	results, err := api.engine.List(c.Request.Context(), RequesterFrom(c), req)
	if err != nil {
		SendEngineError(c, err)
		return
	}
	sendResults(c, results, req.Pretty)
}

// SearchHandler handles POST /-/v0/search.
// Request Body: services.SearchQueryApiRequest
func (api *API) SearchHandler(c *gin.Context) {
	var req services.SearchQueryApiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBindingError(c, err)
		return
	}

	results, err := api.engine.Search(c.Request.Context(), RequesterFrom(c), req)
	if err != nil {
		SendEngineError(c, err)
		return
	}
	sendResults(c, results, req.Pretty)
}

// sendResults writes the results; pretty only changes whitespace.
func sendResults(c *gin.Context, results *services.QueryResults, pretty bool) {
	if pretty {
		c.IndentedJSON(http.StatusOK, results)
		return
	}
	c.JSON(http.StatusOK, results)
}
