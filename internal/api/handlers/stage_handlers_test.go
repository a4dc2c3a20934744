package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/factory-platform/production-service/pkg/api"
	"github.com/factory-platform/production-service/pkg/auth"
	"github.com/factory-platform/production-service/pkg/errors"
	"github.com/factory-platform/production-service/pkg/logging"
	"github.com/factory-platform/production-service/pkg/middleware"

	"github.com/factory-platform/production-service/internal/application"
)

type mockStageService struct {
	createStageFn    func(ctx context.Context, cmd application.CreateStageCommand) (*application.StageDTO, error)
	getStageFn       func(ctx context.Context, query application.GetStageQuery) (*application.StageDTO, error)
	listStagesFn     func(ctx context.Context, req api.ListRequest) (*api.PageResponse[application.StageDTO], error)
	updateStageFn    func(ctx context.Context, cmd application.UpdateStageCommand) (*application.StageDTO, error)
	updateEdgesFn    func(ctx context.Context, cmd application.UpdateStageEdgesCommand) (*application.StageDTO, error)
	recordProgressFn func(ctx context.Context, cmd application.RecordProgressCommand) (*application.StageDTO, error)
	setStatusFn      func(ctx context.Context, cmd application.SetStageStatusCommand) (*application.StageDTO, error)
	deleteStageFn    func(ctx context.Context, cmd application.DeleteStageCommand) error
	getStatsFn       func(ctx context.Context, filter api.FilterRequest) ([]application.StageStatsDTO, error)
}

func (m *mockStageService) CreateStage(ctx context.Context, cmd application.CreateStageCommand) (*application.StageDTO, error) {
	if m.createStageFn == nil {
		panic("CreateStage not implemented")
	}
	return m.createStageFn(ctx, cmd)
}

func (m *mockStageService) GetStage(ctx context.Context, query application.GetStageQuery) (*application.StageDTO, error) {
	if m.getStageFn == nil {
		panic("GetStage not implemented")
	}
	return m.getStageFn(ctx, query)
}

func (m *mockStageService) ListStages(ctx context.Context, req api.ListRequest) (*api.PageResponse[application.StageDTO], error) {
	if m.listStagesFn == nil {
		panic("ListStages not implemented")
	}
	return m.listStagesFn(ctx, req)
}

func (m *mockStageService) UpdateStage(ctx context.Context, cmd application.UpdateStageCommand) (*application.StageDTO, error) {
	if m.updateStageFn == nil {
		panic("UpdateStage not implemented")
	}
	return m.updateStageFn(ctx, cmd)
}

func (m *mockStageService) UpdateStageEdges(ctx context.Context, cmd application.UpdateStageEdgesCommand) (*application.StageDTO, error) {
	if m.updateEdgesFn == nil {
		panic("UpdateStageEdges not implemented")
	}
	return m.updateEdgesFn(ctx, cmd)
}

func (m *mockStageService) RecordProgress(ctx context.Context, cmd application.RecordProgressCommand) (*application.StageDTO, error) {
	if m.recordProgressFn == nil {
		panic("RecordProgress not implemented")
	}
	return m.recordProgressFn(ctx, cmd)
}

func (m *mockStageService) SetStatus(ctx context.Context, cmd application.SetStageStatusCommand) (*application.StageDTO, error) {
	if m.setStatusFn == nil {
		panic("SetStatus not implemented")
	}
	return m.setStatusFn(ctx, cmd)
}

func (m *mockStageService) DeleteStage(ctx context.Context, cmd application.DeleteStageCommand) error {
	if m.deleteStageFn == nil {
		panic("DeleteStage not implemented")
	}
	return m.deleteStageFn(ctx, cmd)
}

func (m *mockStageService) GetStats(ctx context.Context, filter api.FilterRequest) ([]application.StageStatsDTO, error) {
	if m.getStatsFn == nil {
		panic("GetStats not implemented")
	}
	return m.getStatsFn(ctx, filter)
}

func actorMiddleware(actor *auth.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyActor, actor)
		c.Set(middleware.ContextKeyCompanyID, actor.CompanyID)
		c.Next()
	}
}

func newStageTestRouter(service StageService, actor *auth.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(actorMiddleware(actor))
	logger := logging.New(logging.DefaultConfig("test"))
	handlers := NewStageHandlers(service, logger)
	handlers.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func adminActor() *auth.Actor {
	return &auth.Actor{UserID: "admin-1", Role: auth.RoleAdmin, CompanyID: "company-1"}
}

func performRequest(router *gin.Engine, method, path string, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStageHandlers_CreateStage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		service := &mockStageService{
			createStageFn: func(ctx context.Context, cmd application.CreateStageCommand) (*application.StageDTO, error) {
				if cmd.Name != "Cutting" || cmd.TargetQuantity != 100 {
					t.Fatalf("unexpected command: %+v", cmd)
				}
				return &application.StageDTO{StageID: "stage-1", Name: cmd.Name, Status: "planned"}, nil
			},
		}
		router := newStageTestRouter(service, adminActor())
		body := `{"name":"Cutting","order":1,"targetQuantity":100}`
		rec := performRequest(router, http.MethodPost, "/api/v1/stages", body)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"stageId":"stage-1"`) {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("bad json", func(t *testing.T) {
		service := &mockStageService{}
		router := newStageTestRouter(service, adminActor())
		rec := performRequest(router, http.MethodPost, "/api/v1/stages", `{"name":}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("employee is forbidden", func(t *testing.T) {
		service := &mockStageService{}
		employee := &auth.Actor{UserID: "emp-1", Role: auth.RoleEmployee, CompanyID: "company-1"}
		router := newStageTestRouter(service, employee)
		body := `{"name":"Cutting","order":1,"targetQuantity":100}`
		rec := performRequest(router, http.MethodPost, "/api/v1/stages", body)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("app error", func(t *testing.T) {
		service := &mockStageService{
			createStageFn: func(ctx context.Context, cmd application.CreateStageCommand) (*application.StageDTO, error) {
				return nil, errors.ErrValidation("bad")
			},
		}
		router := newStageTestRouter(service, adminActor())
		body := `{"name":"Cutting","order":1,"targetQuantity":100}`
		rec := performRequest(router, http.MethodPost, "/api/v1/stages", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestStageHandlers_GetStage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		service := &mockStageService{
			getStageFn: func(ctx context.Context, query application.GetStageQuery) (*application.StageDTO, error) {
				if query.StageID != "stage-2" {
					t.Fatalf("StageID = %s", query.StageID)
				}
				return &application.StageDTO{StageID: query.StageID}, nil
			},
		}
		router := newStageTestRouter(service, adminActor())
		rec := performRequest(router, http.MethodGet, "/api/v1/stages/stage-2", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		service := &mockStageService{
			getStageFn: func(ctx context.Context, query application.GetStageQuery) (*application.StageDTO, error) {
				return nil, errors.ErrNotFound("stage")
			},
		}
		router := newStageTestRouter(service, adminActor())
		rec := performRequest(router, http.MethodGet, "/api/v1/stages/stage-404", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("internal error", func(t *testing.T) {
		service := &mockStageService{
			getStageFn: func(ctx context.Context, query application.GetStageQuery) (*application.StageDTO, error) {
				return nil, fmt.Errorf("boom")
			},
		}
		router := newStageTestRouter(service, adminActor())
		rec := performRequest(router, http.MethodGet, "/api/v1/stages/stage-500", "")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestStageHandlers_UpdateEdges(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		service := &mockStageService{
			updateEdgesFn: func(ctx context.Context, cmd application.UpdateStageEdgesCommand) (*application.StageDTO, error) {
				if cmd.StageID != "stage-3" || len(cmd.Successors) != 1 {
					t.Fatalf("unexpected command: %+v", cmd)
				}
				return &application.StageDTO{StageID: cmd.StageID, Successors: cmd.Successors}, nil
			},
		}
		router := newStageTestRouter(service, adminActor())
		rec := performRequest(router, http.MethodPut, "/api/v1/stages/stage-3/edges", `{"successors":["stage-4"]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("cycle rejection surfaces as validation error", func(t *testing.T) {
		service := &mockStageService{
			updateEdgesFn: func(ctx context.Context, cmd application.UpdateStageEdgesCommand) (*application.StageDTO, error) {
				return nil, errors.ErrValidation("circular dependency detected")
			},
		}
		router := newStageTestRouter(service, adminActor())
		rec := performRequest(router, http.MethodPut, "/api/v1/stages/stage-3/edges", `{"successors":["stage-1"]}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "circular dependency detected") {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})
}

func TestStageHandlers_RecordProgress(t *testing.T) {
	t.Run("admin records progress", func(t *testing.T) {
		service := &mockStageService{
			getStageFn: func(ctx context.Context, query application.GetStageQuery) (*application.StageDTO, error) {
				return &application.StageDTO{StageID: query.StageID, AssignedUserID: "emp-9"}, nil
			},
			recordProgressFn: func(ctx context.Context, cmd application.RecordProgressCommand) (*application.StageDTO, error) {
				if cmd.CompletedQuantity != 5 {
					t.Fatalf("CompletedQuantity = %d", cmd.CompletedQuantity)
				}
				return &application.StageDTO{StageID: cmd.StageID, Status: "in_progress"}, nil
			},
		}
		router := newStageTestRouter(service, adminActor())
		rec := performRequest(router, http.MethodPost, "/api/v1/stages/stage-5/progress", `{"completedQuantity":5}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("zero quantity is accepted", func(t *testing.T) {
		service := &mockStageService{
			getStageFn: func(ctx context.Context, query application.GetStageQuery) (*application.StageDTO, error) {
				return &application.StageDTO{StageID: query.StageID}, nil
			},
			recordProgressFn: func(ctx context.Context, cmd application.RecordProgressCommand) (*application.StageDTO, error) {
				if cmd.CompletedQuantity != 0 {
					t.Fatalf("CompletedQuantity = %d", cmd.CompletedQuantity)
				}
				return &application.StageDTO{StageID: cmd.StageID, Status: "planned"}, nil
			},
		}
		router := newStageTestRouter(service, adminActor())
		rec := performRequest(router, http.MethodPost, "/api/v1/stages/stage-5/progress", `{"completedQuantity":0}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("employee blocked on another assignment", func(t *testing.T) {
		service := &mockStageService{
			getStageFn: func(ctx context.Context, query application.GetStageQuery) (*application.StageDTO, error) {
				return &application.StageDTO{StageID: query.StageID, AssignedUserID: "someone-else"}, nil
			},
		}
		employee := &auth.Actor{UserID: "emp-1", Role: auth.RoleEmployee, CompanyID: "company-1"}
		router := newStageTestRouter(service, employee)
		rec := performRequest(router, http.MethodPost, "/api/v1/stages/stage-5/progress", `{"completedQuantity":5}`)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("employee allowed on own assignment", func(t *testing.T) {
		service := &mockStageService{
			getStageFn: func(ctx context.Context, query application.GetStageQuery) (*application.StageDTO, error) {
				return &application.StageDTO{StageID: query.StageID, AssignedUserID: "emp-1"}, nil
			},
			recordProgressFn: func(ctx context.Context, cmd application.RecordProgressCommand) (*application.StageDTO, error) {
				return &application.StageDTO{StageID: cmd.StageID, Status: "in_progress"}, nil
			},
		}
		employee := &auth.Actor{UserID: "emp-1", Role: auth.RoleEmployee, CompanyID: "company-1"}
		router := newStageTestRouter(service, employee)
		rec := performRequest(router, http.MethodPost, "/api/v1/stages/stage-5/progress", `{"completedQuantity":5}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("missing quantity is a bad request", func(t *testing.T) {
		service := &mockStageService{}
		router := newStageTestRouter(service, adminActor())
		rec := performRequest(router, http.MethodPost, "/api/v1/stages/stage-5/progress", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestStageHandlers_SetStatusAndDelete(t *testing.T) {
	t.Run("hold", func(t *testing.T) {
		service := &mockStageService{
			setStatusFn: func(ctx context.Context, cmd application.SetStageStatusCommand) (*application.StageDTO, error) {
				if cmd.Action != "hold" {
					t.Fatalf("Action = %s", cmd.Action)
				}
				return &application.StageDTO{StageID: cmd.StageID, Status: "on_hold"}, nil
			},
		}
		router := newStageTestRouter(service, adminActor())
		rec := performRequest(router, http.MethodPut, "/api/v1/stages/stage-6/status", `{"action":"hold"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("delete success", func(t *testing.T) {
		service := &mockStageService{
			deleteStageFn: func(ctx context.Context, cmd application.DeleteStageCommand) error {
				if cmd.StageID != "stage-6" {
					t.Fatalf("StageID = %s", cmd.StageID)
				}
				return nil
			},
		}
		router := newStageTestRouter(service, adminActor())
		rec := performRequest(router, http.MethodDelete, "/api/v1/stages/stage-6", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("delete conflict", func(t *testing.T) {
		service := &mockStageService{
			deleteStageFn: func(ctx context.Context, cmd application.DeleteStageCommand) error {
				return errors.ErrConflict("cannot delete a stage that is in progress")
			},
		}
		router := newStageTestRouter(service, adminActor())
		rec := performRequest(router, http.MethodDelete, "/api/v1/stages/stage-6", "")
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("delete forbidden for supervisor", func(t *testing.T) {
		service := &mockStageService{}
		supervisor := &auth.Actor{UserID: "sup-1", Role: auth.RoleSupervisor, CompanyID: "company-1"}
		router := newStageTestRouter(service, supervisor)
		rec := performRequest(router, http.MethodDelete, "/api/v1/stages/stage-6", "")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestStageHandlers_ListAndStats(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		service := &mockStageService{
			listStagesFn: func(ctx context.Context, req api.ListRequest) (*api.PageResponse[application.StageDTO], error) {
				if req.Filter.Status != "in_progress" {
					t.Fatalf("Status filter = %s", req.Filter.Status)
				}
				page := api.NewPageResponse([]application.StageDTO{{StageID: "stage-1"}}, 1, 20, 1)
				return &page, nil
			},
		}
		router := newStageTestRouter(service, adminActor())
		rec := performRequest(router, http.MethodGet, "/api/v1/stages?status=in_progress", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("stats", func(t *testing.T) {
		service := &mockStageService{
			getStatsFn: func(ctx context.Context, filter api.FilterRequest) ([]application.StageStatsDTO, error) {
				return []application.StageStatsDTO{{Status: "completed", Count: 3}}, nil
			},
		}
		router := newStageTestRouter(service, adminActor())
		rec := performRequest(router, http.MethodGet, "/api/v1/stages/stats", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"completed"`) {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})
}
