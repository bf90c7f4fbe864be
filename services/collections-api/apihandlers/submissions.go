package apihandlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	mw "github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/apihelpers/middlewares"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections"
)

func (h *HttpEndpoints) AddSubmissionsAPI(rg *gin.RouterGroup) {
	submissionsGroup := rg.Group("/collections/:collectionID/submissions")
	submissionsGroup.Use(mw.GetAndValidateCollectionUserJWT(h.tokenSignKey))
	submissionsGroup.Use(mw.IsInstanceIDInJWTAllowed(h.allowedInstanceIDs))
	{
		submissionsGroup.POST("", mw.RequirePayload(), h.startSubmission)

		submissionGroup := submissionsGroup.Group("/:submissionID")
		{
			submissionGroup.GET("", h.getSubmission)
			submissionGroup.GET("/components/:componentID/visible", h.isComponentVisible) // ?index=0
			submissionGroup.GET("/questions/:questionID", h.getQuestionPage)
			submissionGroup.POST("/answers", mw.RequirePayload(), h.submitAnswer)
			submissionGroup.DELETE("/add-another/:containerID/:index", h.removeAddAnotherAnswer)
			submissionGroup.POST("/forms/:formID/completed", mw.RequirePayload(), h.toggleFormCompleted)
			submissionGroup.POST("/submit", h.submit)
		}
	}
}

func (h *HttpEndpoints) startSubmission(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")

	var req struct {
		Mode string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode, err := parseMode(req.Mode)
	if err != nil || mode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be test or live"})
		return
	}

	submission, err := collections.StartSubmission(c.Request.Context(), token.InstanceID, collectionID, mode, token.Subject)
	if err != nil {
		respondWithError(c, err, "failed to start submission", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collectionID))
		return
	}

	overview, err := collections.GetSubmissionOverview(c.Request.Context(), token.InstanceID, collectionID, submission.ID.Hex())
	if err != nil {
		respondWithError(c, err, "failed to get submission", slog.String("instanceID", token.InstanceID), slog.String("submissionID", submission.ID.Hex()))
		return
	}

	slog.Info("submission started", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collectionID), slog.String("submissionID", submission.ID.Hex()), slog.String("mode", string(mode)))
	c.JSON(http.StatusCreated, gin.H{"submission": overview})
}

func (h *HttpEndpoints) getSubmission(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")
	submissionID := c.Param("submissionID")

	overview, err := collections.GetSubmissionOverview(c.Request.Context(), token.InstanceID, collectionID, submissionID)
	if err != nil {
		respondWithError(c, err, "failed to get submission", slog.String("instanceID", token.InstanceID), slog.String("submissionID", submissionID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"submission": overview})
}

func (h *HttpEndpoints) isComponentVisible(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")
	submissionID := c.Param("submissionID")
	componentID := c.Param("componentID")

	index, err := optionalIndex(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be a number"})
		return
	}

	visible, err := collections.IsComponentVisible(c.Request.Context(), token.InstanceID, collectionID, submissionID, componentID, index)
	if err != nil {
		respondWithError(c, err, "failed to resolve visibility", slog.String("instanceID", token.InstanceID), slog.String("submissionID", submissionID), slog.String("componentID", componentID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"visible": visible})
}

func (h *HttpEndpoints) getQuestionPage(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")
	submissionID := c.Param("submissionID")
	questionID := c.Param("questionID")

	index, err := optionalIndex(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be a number"})
		return
	}

	page, err := collections.GetQuestionPage(c.Request.Context(), token.InstanceID, collectionID, submissionID, questionID, index)
	if err != nil {
		respondWithError(c, err, "failed to get question", slog.String("instanceID", token.InstanceID), slog.String("submissionID", submissionID), slog.String("questionID", questionID))
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *HttpEndpoints) submitAnswer(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")
	submissionID := c.Param("submissionID")

	var req struct {
		QuestionID string      `json:"questionID"`
		Value      interface{} `json:"value"`
		Index      *int        `json:"index,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	overview, err := collections.SubmitAnswer(c.Request.Context(), token.InstanceID, collectionID, submissionID, req.QuestionID, req.Value, req.Index)
	if err != nil {
		respondWithError(c, err, "failed to submit answer", slog.String("instanceID", token.InstanceID), slog.String("submissionID", submissionID), slog.String("questionID", req.QuestionID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"submission": overview})
}

func (h *HttpEndpoints) removeAddAnotherAnswer(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")
	submissionID := c.Param("submissionID")
	containerID := c.Param("containerID")

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be a number"})
		return
	}

	overview, err := collections.RemoveAddAnotherAnswer(c.Request.Context(), token.InstanceID, collectionID, submissionID, containerID, index)
	if err != nil {
		respondWithError(c, err, "failed to remove answer", slog.String("instanceID", token.InstanceID), slog.String("submissionID", submissionID), slog.String("containerID", containerID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"submission": overview})
}

func (h *HttpEndpoints) toggleFormCompleted(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")
	submissionID := c.Param("submissionID")
	formID := c.Param("formID")

	var req struct {
		Completed bool `json:"completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	overview, err := collections.ToggleFormCompleted(c.Request.Context(), token.InstanceID, collectionID, submissionID, formID, req.Completed, token.Subject)
	if err != nil {
		respondWithError(c, err, "failed to update form completion", slog.String("instanceID", token.InstanceID), slog.String("submissionID", submissionID), slog.String("formID", formID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"submission": overview})
}

func (h *HttpEndpoints) submit(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")
	submissionID := c.Param("submissionID")

	overview, err := collections.Submit(c.Request.Context(), token.InstanceID, collectionID, submissionID, token.Subject)
	if err != nil {
		respondWithError(c, err, "failed to submit", slog.String("instanceID", token.InstanceID), slog.String("submissionID", submissionID))
		return
	}

	slog.Info("submission submitted", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collectionID), slog.String("submissionID", submissionID), slog.String("userID", token.Subject))
	c.JSON(http.StatusOK, gin.H{"submission": overview})
}
