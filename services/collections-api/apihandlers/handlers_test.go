package apihandlers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/collectionstest"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/exporter"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/expressionengine"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/schema"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	jwthandling "github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/jwt-handling"
)

const (
	testSignKey    = "test-sign-key"
	testInstanceID = "grants"
)

type testAPI struct {
	router    *gin.Engine
	editor    string
	applicant string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	collections.Init(collectionstest.NewMemoryDB(), schema.DefaultEditorConfig())

	router := gin.New()
	router.GET("/", HealthCheckHandle)
	v1Root := router.Group("/v1")
	h := NewHTTPHandler(testSignKey, []string{testInstanceID})
	h.AddCollectionEditorAPI(v1Root)
	h.AddSubmissionsAPI(v1Root)

	editor, err := jwthandling.GenerateNewCollectionUserToken(time.Minute, "editor@example.com", testInstanceID, true, testSignKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	applicant, err := jwthandling.GenerateNewCollectionUserToken(time.Minute, "applicant@example.com", testInstanceID, false, testSignKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return &testAPI{router: router, editor: editor, applicant: applicant}
}

func (api *testAPI) do(method string, path string, token string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	return w
}

// expect checks the status and decodes the JSON response into out, when given.
func expect(t *testing.T, w *httptest.ResponseRecorder, status int, out interface{}) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("invalid response body: %v", err)
		}
	}
}

type idResponse struct {
	ID string `json:"id"`
}

// buildCollection creates a collection with one form holding hours and minutes, where minutes is
// only asked when hours is greater than 30.
func (api *testAPI) buildCollection(t *testing.T) (collectionID string, formID string, hoursID string, minutesID string) {
	t.Helper()
	var created struct {
		Collection struct {
			ID       string `json:"id"`
			Sections []struct {
				ID string `json:"id"`
			} `json:"sections"`
		} `json:"collection"`
	}
	expect(t, api.do(http.MethodPost, "/v1/collections", api.editor, gin.H{"name": "Community grant"}), http.StatusCreated, &created)
	collectionID = created.Collection.ID
	base := "/v1/collections/" + collectionID

	var form struct {
		Form idResponse `json:"form"`
	}
	expect(t, api.do(http.MethodPost, base+"/sections/"+created.Collection.Sections[0].ID+"/forms", api.editor, gin.H{"title": "Activity"}), http.StatusCreated, &form)
	formID = form.Form.ID

	var hours, minutes struct {
		Component idResponse `json:"component"`
	}
	expect(t, api.do(http.MethodPost, base+"/components/"+formID+"/questions", api.editor, gin.H{
		"text": "Hours?", "name": "hours", "dataType": types.DATA_TYPE_INTEGER,
	}), http.StatusCreated, &hours)
	expect(t, api.do(http.MethodPost, base+"/components/"+formID+"/questions", api.editor, gin.H{
		"text": "Minutes?", "name": "minutes", "dataType": types.DATA_TYPE_INTEGER,
	}), http.StatusCreated, &minutes)
	hoursID, minutesID = hours.Component.ID, minutes.Component.ID

	expect(t, api.do(http.MethodPost, base+"/components/"+minutesID+"/conditions", api.editor, gin.H{
		"managedName": expressionengine.MANAGED_GREATER_THAN,
		"context":     gin.H{"questionId": hoursID, "minimumValue": 30},
	}), http.StatusCreated, nil)
	return
}

func TestHealthCheck(t *testing.T) {
	api := newTestAPI(t)
	expect(t, api.do(http.MethodGet, "/", "", nil), http.StatusOK, nil)
}

func TestCollectionEditorAPI(t *testing.T) {
	api := newTestAPI(t)
	collectionID, formID, hoursID, minutesID := api.buildCollection(t)
	base := "/v1/collections/" + collectionID

	t.Run("editor endpoints need edit rights", func(t *testing.T) {
		expect(t, api.do(http.MethodPost, "/v1/collections", api.applicant, gin.H{"name": "Other"}), http.StatusUnauthorized, nil)
		expect(t, api.do(http.MethodGet, base, "", nil), http.StatusBadRequest, nil)
	})

	t.Run("get collection", func(t *testing.T) {
		var resp struct {
			Collection types.Collection `json:"collection"`
		}
		expect(t, api.do(http.MethodGet, base, api.editor, nil), http.StatusOK, &resp)
		if resp.Collection.Name != "Community grant" || len(resp.Collection.Sections) != 1 {
			t.Errorf("unexpected collection: %+v", resp.Collection)
		}
	})

	t.Run("unknown collection", func(t *testing.T) {
		expect(t, api.do(http.MethodGet, "/v1/collections/65a1b2c3d4e5f60718293a4b", api.editor, nil), http.StatusNotFound, nil)
		expect(t, api.do(http.MethodGet, "/v1/collections/not-an-id", api.editor, nil), http.StatusNotFound, nil)
	})

	t.Run("missing payload", func(t *testing.T) {
		expect(t, api.do(http.MethodPost, base+"/sections", api.editor, nil), http.StatusBadRequest, nil)
	})

	t.Run("invalid question", func(t *testing.T) {
		expect(t, api.do(http.MethodPost, base+"/components/"+formID+"/questions", api.editor, gin.H{
			"text": "Hours again?", "name": "hours", "dataType": types.DATA_TYPE_INTEGER,
		}), http.StatusBadRequest, nil)
	})

	t.Run("expression needs managed name or statement", func(t *testing.T) {
		expect(t, api.do(http.MethodPost, base+"/components/"+minutesID+"/validations", api.editor, gin.H{}), http.StatusBadRequest, nil)
	})

	t.Run("referenced question cannot be deleted", func(t *testing.T) {
		expect(t, api.do(http.MethodDelete, base+"/components/"+hoursID, api.editor, nil), http.StatusBadRequest, nil)
	})

	t.Run("move", func(t *testing.T) {
		expect(t, api.do(http.MethodPost, base+"/components/"+minutesID+"/move", api.editor, gin.H{"direction": "sideways"}), http.StatusBadRequest, nil)
		expect(t, api.do(http.MethodPost, base+"/components/"+hoursID+"/move", api.editor, gin.H{"direction": "up"}), http.StatusBadRequest, nil)
	})

	t.Run("update component", func(t *testing.T) {
		var resp struct {
			Component types.Component `json:"component"`
		}
		expect(t, api.do(http.MethodPut, base+"/components/"+minutesID, api.editor, gin.H{
			"text": "Minutes per week?", "hint": "Round to the nearest 5",
		}), http.StatusOK, &resp)
		if resp.Component.Text != "Minutes per week?" || resp.Component.Name != "minutes" {
			t.Errorf("unexpected component: %+v", resp.Component)
		}
		expect(t, api.do(http.MethodPut, base+"/components/"+minutesID, api.editor, gin.H{"text": "Minutes?", "name": "hours"}), http.StatusBadRequest, nil)
	})

	t.Run("add and remove validation", func(t *testing.T) {
		var resp struct {
			Expression idResponse `json:"expression"`
		}
		expect(t, api.do(http.MethodPost, base+"/components/"+hoursID+"/validations", api.editor, gin.H{
			"statement": "true",
		}), http.StatusCreated, &resp)
		expect(t, api.do(http.MethodDelete, base+"/components/"+hoursID+"/expressions/"+resp.Expression.ID, api.editor, nil), http.StatusOK, nil)
		expect(t, api.do(http.MethodDelete, base+"/components/"+hoursID+"/expressions/"+resp.Expression.ID, api.editor, nil), http.StatusNotFound, nil)
	})
}

func TestSubmissionsAPI(t *testing.T) {
	api := newTestAPI(t)
	collectionID, formID, hoursID, minutesID := api.buildCollection(t)
	base := "/v1/collections/" + collectionID + "/submissions"

	var started struct {
		Submission collections.SubmissionOverview `json:"submission"`
	}
	expect(t, api.do(http.MethodPost, base, api.applicant, gin.H{"mode": "live"}), http.StatusCreated, &started)
	if started.Submission.Status != types.SUBMISSION_STATUS_NOT_STARTED {
		t.Errorf("unexpected status: %s", started.Submission.Status)
	}
	submissionPath := base + "/" + started.Submission.ID.Hex()

	visible := func(t *testing.T) bool {
		t.Helper()
		var resp struct {
			Visible bool `json:"visible"`
		}
		expect(t, api.do(http.MethodGet, submissionPath+"/components/"+minutesID+"/visible", api.applicant, nil), http.StatusOK, &resp)
		return resp.Visible
	}

	t.Run("unknown mode", func(t *testing.T) {
		expect(t, api.do(http.MethodPost, base, api.applicant, gin.H{"mode": "draft"}), http.StatusBadRequest, nil)
	})

	t.Run("condition follows the answer", func(t *testing.T) {
		if visible(t) {
			t.Error("minutes should be hidden before hours is answered")
		}
		expect(t, api.do(http.MethodPost, submissionPath+"/answers", api.applicant, gin.H{"questionID": hoursID, "value": "40"}), http.StatusOK, nil)
		if !visible(t) {
			t.Error("minutes should be visible for 40 hours")
		}
	})

	t.Run("question page", func(t *testing.T) {
		var page collections.QuestionPage
		expect(t, api.do(http.MethodGet, submissionPath+"/questions/"+hoursID, api.applicant, nil), http.StatusOK, &page)
		if page.Text != "Hours?" || !page.Visible || page.NextQuestionID == nil || page.NextQuestionID.Hex() != minutesID || page.PreviousQuestionID != nil {
			t.Errorf("unexpected page: %+v", page)
		}
		expect(t, api.do(http.MethodGet, submissionPath+"/questions/"+formID, api.applicant, nil), http.StatusNotFound, nil)
	})

	t.Run("invalid answer", func(t *testing.T) {
		expect(t, api.do(http.MethodPost, submissionPath+"/answers", api.applicant, gin.H{"questionID": hoursID, "value": "many"}), http.StatusBadRequest, nil)
	})

	t.Run("invalid index", func(t *testing.T) {
		expect(t, api.do(http.MethodGet, submissionPath+"/components/"+minutesID+"/visible?index=x", api.applicant, nil), http.StatusBadRequest, nil)
	})

	t.Run("completion needs all visible answers", func(t *testing.T) {
		expect(t, api.do(http.MethodPost, submissionPath+"/forms/"+formID+"/completed", api.applicant, gin.H{"completed": true}), http.StatusConflict, nil)
		expect(t, api.do(http.MethodPost, submissionPath+"/submit", api.applicant, nil), http.StatusConflict, nil)
	})

	t.Run("complete and submit", func(t *testing.T) {
		expect(t, api.do(http.MethodPost, submissionPath+"/answers", api.applicant, gin.H{"questionID": minutesID, "value": "15"}), http.StatusOK, nil)

		var resp struct {
			Submission collections.SubmissionOverview `json:"submission"`
		}
		expect(t, api.do(http.MethodPost, submissionPath+"/forms/"+formID+"/completed", api.applicant, gin.H{"completed": true}), http.StatusOK, &resp)
		if resp.Submission.Status != types.SUBMISSION_STATUS_IN_PROGRESS || resp.Submission.Forms[0].Status != types.SUBMISSION_STATUS_COMPLETED {
			t.Errorf("unexpected status: %+v", resp.Submission)
		}
		expect(t, api.do(http.MethodPost, submissionPath+"/submit", api.applicant, nil), http.StatusOK, &resp)
		if resp.Submission.Status != types.SUBMISSION_STATUS_COMPLETED || resp.Submission.SubmittedAt == nil {
			t.Errorf("unexpected submission: %+v", resp.Submission)
		}
	})

	t.Run("submitted submission is read only", func(t *testing.T) {
		expect(t, api.do(http.MethodPost, submissionPath+"/answers", api.applicant, gin.H{"questionID": hoursID, "value": "10"}), http.StatusConflict, nil)
	})

	t.Run("export", func(t *testing.T) {
		w := api.do(http.MethodGet, "/v1/collections/"+collectionID+"/export?mode=live&format=csv", api.editor, nil)
		expect(t, w, http.StatusOK, nil)
		if !strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment;") {
			t.Errorf("unexpected content disposition: %s", w.Header().Get("Content-Disposition"))
		}
		records, err := csv.NewReader(w.Body).ReadAll()
		if err != nil {
			t.Fatalf("invalid csv: %v", err)
		}
		if len(records) != 2 || records[1][5] != "40" || records[1][6] != "15" {
			t.Errorf("unexpected export: %v", records)
		}

		expect(t, api.do(http.MethodGet, "/v1/collections/"+collectionID+"/export?format=xml", api.editor, nil), http.StatusBadRequest, nil)
		expect(t, api.do(http.MethodGet, "/v1/collections/"+collectionID+"/export?mode=draft", api.editor, nil), http.StatusBadRequest, nil)
		expect(t, api.do(http.MethodGet, "/v1/collections/"+collectionID+"/export", api.applicant, nil), http.StatusUnauthorized, nil)
	})

	t.Run("json export omits hidden questions", func(t *testing.T) {
		var doc struct {
			Submissions []exporter.SubmissionRecord `json:"submissions"`
		}
		expect(t, api.do(http.MethodGet, "/v1/collections/"+collectionID+"/export?format=json", api.editor, nil), http.StatusOK, &doc)
		if len(doc.Submissions) != 1 || len(doc.Submissions[0].Tasks) != 1 {
			t.Fatalf("unexpected export: %+v", doc)
		}
	})
}

func TestTestSubmissionCleanup(t *testing.T) {
	api := newTestAPI(t)
	collectionID, _, _, _ := api.buildCollection(t)
	base := "/v1/collections/" + collectionID

	expect(t, api.do(http.MethodPost, base+"/submissions", api.editor, gin.H{"mode": "test"}), http.StatusCreated, nil)
	expect(t, api.do(http.MethodPost, base+"/submissions", api.editor, gin.H{"mode": "live"}), http.StatusCreated, nil)

	var resp struct {
		Count int64 `json:"count"`
	}
	expect(t, api.do(http.MethodDelete, base+"/test-submissions", api.editor, nil), http.StatusOK, &resp)
	if resp.Count != 1 {
		t.Errorf("expected one deleted submission, got %d", resp.Count)
	}
}
