package apihandlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	mw "github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/apihelpers/middlewares"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/exporter"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/schema"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
)

func (h *HttpEndpoints) AddCollectionEditorAPI(rg *gin.RouterGroup) {
	collectionsGroup := rg.Group("/collections")
	collectionsGroup.Use(mw.GetAndValidateCollectionUserJWT(h.tokenSignKey))
	collectionsGroup.Use(mw.IsInstanceIDInJWTAllowed(h.allowedInstanceIDs))
	collectionsGroup.Use(mw.CanEditCollections())
	{
		collectionsGroup.POST("", mw.RequirePayload(), h.createCollection)
		collectionsGroup.GET("/:collectionID", h.getCollection)

		collectionsGroup.POST("/:collectionID/sections", mw.RequirePayload(), h.addSection)
		collectionsGroup.DELETE("/:collectionID/sections/:sectionID", h.deleteSection)
		collectionsGroup.POST("/:collectionID/sections/:sectionID/forms", mw.RequirePayload(), h.addForm)
		collectionsGroup.DELETE("/:collectionID/forms/:formID", h.deleteForm)

		componentsGroup := collectionsGroup.Group("/:collectionID/components/:componentID")
		{
			componentsGroup.POST("/questions", mw.RequirePayload(), h.addQuestion)
			componentsGroup.POST("/groups", mw.RequirePayload(), h.addGroup)
			componentsGroup.POST("/conditions", mw.RequirePayload(), h.addExpression(types.EXPRESSION_TYPE_CONDITION))
			componentsGroup.POST("/validations", mw.RequirePayload(), h.addExpression(types.EXPRESSION_TYPE_VALIDATION))
			componentsGroup.DELETE("/expressions/:expressionID", h.removeExpression)
			componentsGroup.PUT("", mw.RequirePayload(), h.updateComponent)
			componentsGroup.POST("/move", mw.RequirePayload(), h.moveComponent)
			componentsGroup.POST("/parent", mw.RequirePayload(), h.moveComponentToParent)
			componentsGroup.DELETE("", h.deleteComponent)
		}

		collectionsGroup.GET("/:collectionID/export", h.exportSubmissions) // ?mode=test|live&format=csv|json
		collectionsGroup.DELETE("/:collectionID/test-submissions", h.deleteTestSubmissions)
	}
}

func (h *HttpEndpoints) createCollection(c *gin.Context) {
	token := validatedToken(c)

	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	collection, err := collections.CreateCollection(c.Request.Context(), token.InstanceID, req.Name)
	if err != nil {
		respondWithError(c, err, "failed to create collection", slog.String("instanceID", token.InstanceID))
		return
	}

	slog.Info("collection created", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collection.ID.Hex()), slog.String("userID", token.Subject))
	c.JSON(http.StatusCreated, gin.H{"collection": collection})
}

func (h *HttpEndpoints) getCollection(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")

	collection, err := collections.GetCollection(c.Request.Context(), token.InstanceID, collectionID)
	if err != nil {
		respondWithError(c, err, "failed to get collection", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collectionID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"collection": collection})
}

func (h *HttpEndpoints) addSection(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")

	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	section, err := collections.AddSection(c.Request.Context(), token.InstanceID, collectionID, req.Title)
	if err != nil {
		respondWithError(c, err, "failed to add section", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collectionID))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"section": section})
}

func (h *HttpEndpoints) addForm(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")
	sectionID := c.Param("sectionID")

	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form, err := collections.AddForm(c.Request.Context(), token.InstanceID, collectionID, sectionID, req.Title)
	if err != nil {
		respondWithError(c, err, "failed to add form", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collectionID), slog.String("sectionID", sectionID))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"form": form})
}

func (h *HttpEndpoints) deleteSection(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")
	sectionID := c.Param("sectionID")

	if err := collections.DeleteSection(c.Request.Context(), token.InstanceID, collectionID, sectionID); err != nil {
		respondWithError(c, err, "failed to delete section", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collectionID), slog.String("sectionID", sectionID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "section deleted"})
}

func (h *HttpEndpoints) deleteForm(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")
	formID := c.Param("formID")

	if err := collections.DeleteForm(c.Request.Context(), token.InstanceID, collectionID, formID); err != nil {
		respondWithError(c, err, "failed to delete form", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collectionID), slog.String("formID", formID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "form deleted"})
}

// addQuestion adds a question to the form or group identified by componentID.
func (h *HttpEndpoints) addQuestion(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")
	parentID := c.Param("componentID")

	var req schema.QuestionSpec
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := collections.AddQuestion(c.Request.Context(), token.InstanceID, collectionID, parentID, req)
	if err != nil {
		respondWithError(c, err, "failed to add question", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collectionID), slog.String("parentID", parentID))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"component": question})
}

func (h *HttpEndpoints) addGroup(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")
	parentID := c.Param("componentID")

	var req schema.GroupSpec
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := collections.AddGroup(c.Request.Context(), token.InstanceID, collectionID, parentID, req)
	if err != nil {
		respondWithError(c, err, "failed to add group", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collectionID), slog.String("parentID", parentID))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"component": group})
}

func (h *HttpEndpoints) addExpression(expressionType types.ExpressionType) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := validatedToken(c)
		collectionID := c.Param("collectionID")
		componentID := c.Param("componentID")

		var req collections.ExpressionInput
		if err := c.ShouldBindJSON(&req); err != nil {
			slog.Error("failed to bind request", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		expression, err := collections.AddExpression(c.Request.Context(), token.InstanceID, collectionID, componentID, expressionType, req, token.Subject)
		if err != nil {
			respondWithError(c, err, "failed to add expression",
				slog.String("instanceID", token.InstanceID),
				slog.String("collectionID", collectionID),
				slog.String("componentID", componentID),
				slog.String("type", string(expressionType)),
			)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"expression": expression})
	}
}

func (h *HttpEndpoints) removeExpression(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")
	componentID := c.Param("componentID")
	expressionID := c.Param("expressionID")

	if err := collections.RemoveExpression(c.Request.Context(), token.InstanceID, collectionID, componentID, expressionID); err != nil {
		respondWithError(c, err, "failed to remove expression", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collectionID), slog.String("expressionID", expressionID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "expression removed"})
}

func (h *HttpEndpoints) moveComponent(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")
	componentID := c.Param("componentID")

	var req struct {
		Direction string `json:"direction"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Direction != "up" && req.Direction != "down" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be up or down"})
		return
	}

	if err := collections.MoveComponent(c.Request.Context(), token.InstanceID, collectionID, componentID, req.Direction == "up"); err != nil {
		respondWithError(c, err, "failed to move component", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collectionID), slog.String("componentID", componentID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "component moved"})
}

func (h *HttpEndpoints) updateComponent(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")
	componentID := c.Param("componentID")

	var req struct {
		Text string `json:"text"`
		Hint string `json:"hint"`
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	component, err := collections.UpdateComponent(c.Request.Context(), token.InstanceID, collectionID, componentID, req.Text, req.Hint, req.Name)
	if err != nil {
		respondWithError(c, err, "failed to update component", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collectionID), slog.String("componentID", componentID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"component": component})
}

func (h *HttpEndpoints) moveComponentToParent(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")
	componentID := c.Param("componentID")

	var req struct {
		ParentID string `json:"parentID"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := collections.MoveComponentToParent(c.Request.Context(), token.InstanceID, collectionID, componentID, req.ParentID); err != nil {
		respondWithError(c, err, "failed to move component", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collectionID), slog.String("componentID", componentID), slog.String("parentID", req.ParentID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "component moved"})
}

func (h *HttpEndpoints) deleteComponent(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")
	componentID := c.Param("componentID")

	if err := collections.DeleteComponent(c.Request.Context(), token.InstanceID, collectionID, componentID); err != nil {
		respondWithError(c, err, "failed to delete component", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collectionID), slog.String("componentID", componentID))
		return
	}

	slog.Info("component deleted", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collectionID), slog.String("componentID", componentID), slog.String("userID", token.Subject))
	c.JSON(http.StatusOK, gin.H{"message": "component deleted"})
}

// parseMode maps the query value to a submission mode. Empty means all modes.
func parseMode(raw string) (types.SubmissionMode, error) {
	switch strings.ToUpper(raw) {
	case "":
		return "", nil
	case string(types.SUBMISSION_MODE_TEST):
		return types.SUBMISSION_MODE_TEST, nil
	case string(types.SUBMISSION_MODE_LIVE):
		return types.SUBMISSION_MODE_LIVE, nil
	default:
		return "", fmt.Errorf("unknown mode: %s", raw)
	}
}

func (h *HttpEndpoints) exportSubmissions(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")

	mode, err := parseMode(c.DefaultQuery("mode", string(types.SUBMISSION_MODE_LIVE)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	format := strings.ToLower(c.DefaultQuery("format", exporter.FORMAT_CSV))

	buf := &bytes.Buffer{}
	count, err := collections.ExportSubmissions(c.Request.Context(), token.InstanceID, collectionID, mode, format, buf)
	if err != nil {
		respondWithError(c, err, "failed to export submissions", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collectionID))
		return
	}

	slog.Info("submissions exported",
		slog.String("instanceID", token.InstanceID),
		slog.String("collectionID", collectionID),
		slog.String("mode", string(mode)),
		slog.Int("count", count),
		slog.String("userID", token.Subject),
	)

	contentType := "text/csv"
	if format == exporter.FORMAT_JSON {
		contentType = "application/json"
	}
	filename := fmt.Sprintf("%s_submissions_%s.%s", collectionID, time.Now().UTC().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *HttpEndpoints) deleteTestSubmissions(c *gin.Context) {
	token := validatedToken(c)
	collectionID := c.Param("collectionID")

	count, err := collections.DeleteTestSubmissions(c.Request.Context(), token.InstanceID, collectionID, token.Subject)
	if err != nil {
		respondWithError(c, err, "failed to delete test submissions", slog.String("instanceID", token.InstanceID), slog.String("collectionID", collectionID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
