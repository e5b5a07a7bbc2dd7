package review

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apphttp "cam_backend/internal/http"
	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/repository"
	"cam_backend/platform/logger"
	"cam_backend/platform/validator"
)

func newReviewRouter(t *testing.T) (*gin.Engine, *repository.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	leads := repository.NewMemoryStore()
	engine := gin.New()
	v1 := engine.Group("/api/v1")
	module := NewModule(leads, NewMemoryTaskStore(), nil, validator.New(), logger.New("test"))
	module.RegisterRoutes(&apphttp.RouterContext{Engine: engine, V1: v1, Protected: v1})
	return engine, leads
}

func flagViaAPI(t *testing.T, engine *gin.Engine, leadID uuid.UUID) {
	t.Helper()
	body, _ := json.Marshal(FlagRequest{LeadID: leadID, Type: domain.ReviewTypeMessage, Reason: "borderline score"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/review-tasks", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("flag: got status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestFlagListApproveOverAPI(t *testing.T) {
	engine, leads := newReviewRouter(t)
	lead := seedLead(t, leads, domain.StatusQualified)

	flagViaAPI(t, engine, lead.ID)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/review-tasks?campaignId="+lead.CampaignID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list: got status %d", rec.Code)
	}
	var tasks []Task
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].LeadID != lead.ID {
		t.Fatalf("tasks = %+v, want one for lead %s", tasks, lead.ID)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/review-tasks/"+lead.ID.String()+"/approve", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: got status %d: %s", rec.Code, rec.Body.String())
	}

	updated, err := leads.GetByID(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("reload lead: %v", err)
	}
	if updated.RequiresHumanReview {
		t.Fatalf("review flag still set after approve")
	}
	if updated.Status != domain.StatusQualified {
		t.Fatalf("approve changed status to %s", updated.Status)
	}
}

func TestRejectOverAPIUsesStateMachine(t *testing.T) {
	engine, leads := newReviewRouter(t)
	lead := seedLead(t, leads, domain.StatusQualified)
	flagViaAPI(t, engine, lead.ID)

	body := bytes.NewReader([]byte(`{"reason":"competitor domain"}`))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/review-tasks/"+lead.ID.String()+"/reject", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("reject: got status %d: %s", rec.Code, rec.Body.String())
	}

	updated, err := leads.GetByID(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("reload lead: %v", err)
	}
	if updated.Status != domain.StatusRejected {
		t.Fatalf("status = %s, want REJECTED", updated.Status)
	}
}

func TestResolveUnknownTaskIs404(t *testing.T) {
	engine, _ := newReviewRouter(t)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/review-tasks/"+uuid.NewString()+"/skip", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("skip unknown: got status %d, want 404", rec.Code)
	}
}
