package cases_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/copperline/arbiter/internal/cases"
	"github.com/copperline/arbiter/internal/panel"
	"github.com/copperline/arbiter/pkg/pagination"
	"github.com/copperline/arbiter/pkg/routes"
)

type mockSystem struct {
	createFn   func(ctx context.Context, cmd cases.CreateCommand) (*cases.Case, error)
	findFn     func(ctx context.Context, id uuid.UUID) (*cases.Case, error)
	listFn     func(ctx context.Context, page pagination.PageRequest, filters cases.Filters) (*pagination.PageResult[cases.Case], error)
	advanceFn  func(ctx context.Context, id uuid.UUID) (cases.Phase, error)
	appendFn   func(ctx context.Context, id uuid.UUID, kind, content string, attachment io.Reader, contentType string) (*cases.Case, error)
	validateFn func(ctx context.Context, id uuid.UUID) (*panel.Result, error)
	batchFn    func(ctx context.Context, ids []uuid.UUID) ([]cases.BatchValidation, error)
	decideFn   func(ctx context.Context, reviewID uuid.UUID, cmd cases.DecisionCommand) (*cases.Case, error)
}

func (m *mockSystem) Handler() *cases.Handler { return nil }

func (m *mockSystem) Create(ctx context.Context, cmd cases.CreateCommand) (*cases.Case, error) {
	return m.createFn(ctx, cmd)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*cases.Case, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters cases.Filters) (*pagination.PageResult[cases.Case], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Advance(ctx context.Context, id uuid.UUID) (cases.Phase, error) {
	return m.advanceFn(ctx, id)
}

func (m *mockSystem) AppendEvidence(ctx context.Context, id uuid.UUID, kind, content string, attachment io.Reader, contentType string) (*cases.Case, error) {
	return m.appendFn(ctx, id, kind, content, attachment, contentType)
}

func (m *mockSystem) Validate(ctx context.Context, id uuid.UUID) (*panel.Result, error) {
	return m.validateFn(ctx, id)
}

func (m *mockSystem) ValidateBatch(ctx context.Context, ids []uuid.UUID) ([]cases.BatchValidation, error) {
	return m.batchFn(ctx, ids)
}

func (m *mockSystem) RecordHumanDecision(ctx context.Context, reviewID uuid.UUID, cmd cases.DecisionCommand) (*cases.Case, error) {
	return m.decideFn(ctx, reviewID, cmd)
}

func setupMux(sys cases.System) *http.ServeMux {
	h := cases.NewHandler(
		sys,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
		1<<20,
	)

	mux := http.NewServeMux()
	routes.Register(mux, h.Routes()...)
	return mux
}

func sampleCase() cases.Case {
	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return cases.Case{
		ID:         uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
		Phase:      cases.PhaseGatheringEvidence,
		ActionType: "submitDispute",
		ReasonCode: "goods_not_received",
		Category:   "service",
		Amount:     50_00,
		Currency:   "USD",
		Evidence:   map[string]string{"transaction_record": "txn"},
		Version:    3,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func TestHandlerCreate(t *testing.T) {
	c := sampleCase()
	sys := &mockSystem{
		createFn: func(_ context.Context, cmd cases.CreateCommand) (*cases.Case, error) {
			if cmd.ReasonCode == "" {
				return nil, cases.ErrInvalidCommand
			}
			return &c, nil
		},
	}
	mux := setupMux(sys)

	t.Run("creates case", func(t *testing.T) {
		body, _ := json.Marshal(cases.CreateCommand{
			ReasonCode: "goods_not_received",
			Amount:     50_00,
			Currency:   "USD",
		})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/cases", bytes.NewReader(body))
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rec.Code)
		}

		var got cases.Case
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if got.ID != c.ID {
			t.Errorf("ID = %s, want %s", got.ID, c.ID)
		}
	})

	t.Run("invalid command returns 400", func(t *testing.T) {
		body, _ := json.Marshal(cases.CreateCommand{Amount: 50_00, Currency: "USD"})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/cases", bytes.NewReader(body))
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/cases", strings.NewReader("{broken"))
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerFind(t *testing.T) {
	c := sampleCase()
	sys := &mockSystem{
		findFn: func(_ context.Context, id uuid.UUID) (*cases.Case, error) {
			if id != c.ID {
				return nil, cases.ErrCaseNotFound
			}
			return &c, nil
		},
	}
	mux := setupMux(sys)

	t.Run("returns case with missing evidence", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/cases/"+c.ID.String(), nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var got cases.CaseResponse
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(got.MissingEvidence) != 1 || got.MissingEvidence[0] != "shipping_proof" {
			t.Errorf("MissingEvidence = %v, want [shipping_proof]", got.MissingEvidence)
		}
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/cases/"+uuid.NewString(), nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("malformed id returns 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/cases/not-a-uuid", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerAdvance(t *testing.T) {
	c := sampleCase()

	t.Run("returns landed phase", func(t *testing.T) {
		sys := &mockSystem{
			advanceFn: func(_ context.Context, _ uuid.UUID) (cases.Phase, error) {
				return cases.PhaseValidating, nil
			},
		}
		mux := setupMux(sys)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/cases/"+c.ID.String()+"/advance", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var got cases.AdvanceResponse
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if got.Phase != cases.PhaseValidating {
			t.Errorf("Phase = %s, want validating", got.Phase)
		}
	})

	t.Run("incomplete evidence returns 422", func(t *testing.T) {
		sys := &mockSystem{
			advanceFn: func(_ context.Context, _ uuid.UUID) (cases.Phase, error) {
				return cases.PhaseGatheringEvidence, cases.ErrEvidenceIncomplete
			},
		}
		mux := setupMux(sys)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/cases/"+c.ID.String()+"/advance", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("version race returns 409", func(t *testing.T) {
		sys := &mockSystem{
			advanceFn: func(_ context.Context, _ uuid.UUID) (cases.Phase, error) {
				return "", cases.ErrConcurrentModification
			},
		}
		mux := setupMux(sys)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/cases/"+c.ID.String()+"/advance", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
	})
}

func TestHandlerAppendEvidence(t *testing.T) {
	c := sampleCase()
	sys := &mockSystem{
		appendFn: func(_ context.Context, _ uuid.UUID, kind, content string, attachment io.Reader, _ string) (*cases.Case, error) {
			updated := c
			updated.Evidence = map[string]string{"transaction_record": "txn", kind: content}
			return &updated, nil
		},
	}
	mux := setupMux(sys)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	form.WriteField("kind", "shipping_proof")
	form.WriteField("content", "tracking 789")
	form.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/cases/"+c.ID.String()+"/evidence", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got cases.CaseResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Evidence["shipping_proof"] != "tracking 789" {
		t.Errorf("Evidence = %v, want shipping_proof recorded", got.Evidence)
	}
	if len(got.MissingEvidence) != 0 {
		t.Errorf("MissingEvidence = %v, want none", got.MissingEvidence)
	}
}

func TestHandlerDecide(t *testing.T) {
	c := sampleCase()
	c.Phase = cases.PhaseSubmitting

	sys := &mockSystem{
		decideFn: func(_ context.Context, reviewID uuid.UUID, cmd cases.DecisionCommand) (*cases.Case, error) {
			if cmd.Reviewer == "" {
				return nil, cases.ErrInvalidCommand
			}
			return &c, nil
		},
	}
	mux := setupMux(sys)

	t.Run("approves review", func(t *testing.T) {
		body, _ := json.Marshal(cases.DecisionCommand{Approved: true, Reviewer: "analyst-1"})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/reviews/"+uuid.NewString()+"/decision", bytes.NewReader(body))
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var got cases.Case
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if got.Phase != cases.PhaseSubmitting {
			t.Errorf("Phase = %s, want submitting", got.Phase)
		}
	})

	t.Run("malformed review id returns 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/reviews/xyz/decision", strings.NewReader("{}"))
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerValidateBatch(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	sys := &mockSystem{
		batchFn: func(_ context.Context, got []uuid.UUID) ([]cases.BatchValidation, error) {
			results := make([]cases.BatchValidation, len(got))
			for i, id := range got {
				results[i] = cases.BatchValidation{
					CaseID: id,
					Result: &panel.Result{Pass: true},
				}
			}
			return results, nil
		},
	}
	mux := setupMux(sys)

	t.Run("returns per-case results", func(t *testing.T) {
		body, _ := json.Marshal(cases.BatchValidateRequest{IDs: ids})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/cases/validate", bytes.NewReader(body))
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var got []cases.BatchValidation
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(got) != 2 || got[0].CaseID != ids[0] || got[1].CaseID != ids[1] {
			t.Errorf("results = %+v, want input order preserved", got)
		}
	})

	t.Run("empty id list returns 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/cases/validate", strings.NewReader(`{"ids":[]}`))
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerSearch(t *testing.T) {
	c := sampleCase()
	var captured cases.Filters
	sys := &mockSystem{
		listFn: func(_ context.Context, _ pagination.PageRequest, filters cases.Filters) (*pagination.PageResult[cases.Case], error) {
			captured = filters
			result := pagination.NewPageResult([]cases.Case{c}, 1, 1, 20)
			return &result, nil
		},
	}
	mux := setupMux(sys)

	body := `{"page":1,"page_size":10,"phase":"gathering_evidence"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/cases/search", strings.NewReader(body))
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if captured.Phase == nil || *captured.Phase != "gathering_evidence" {
		t.Errorf("phase filter = %v, want gathering_evidence", captured.Phase)
	}
}
