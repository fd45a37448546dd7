package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	qerrors "github.com/gcbaptista/forum-query-engine/internal/errors"
)

// ReindexTrigger is recorded on jobs started through the API.
const ReindexTrigger = "api"

// ReindexHandler starts an asynchronous rebuild of the index from the
// content source. Only staff may reindex.
func (api *API) ReindexHandler(c *gin.Context) {
	requester := RequesterFrom(c)
	if requester.Anonymous() {
		SendEngineError(c, qerrors.NewUnauthorizedError("reindexing requires a staff token"))
		return
	}
	if !api.engine.IsStaff(requester) {
		SendError(c, http.StatusForbidden, ErrorCodeForbidden, "Only staff can reindex")
		return
	}

	jobID, err := api.engine.Reindex(c.Request.Context(), ReindexTrigger)
	if err != nil {
		SendEngineError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Reindex started",
		"job_id":  jobID,
	})
}
