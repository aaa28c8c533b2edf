package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"grid-buy-planner/internal/grid"
	"grid-buy-planner/internal/instruction"
	"grid-buy-planner/internal/planner"
	"grid-buy-planner/internal/quote"
	"grid-buy-planner/internal/report"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type providerRequest struct {
	Name string `json:"name" validate:"required"`
}

type providersResponse struct {
	Current   string   `json:"current"`
	Providers []string `json:"providers"`
}

type parseRequest struct {
	Text string `json:"instruction" validate:"required"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Defaults(r.Context()))
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.svc.Quote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if s.providers == nil {
		s.writeError(w, planner.ErrNoQuoteSource)
		return
	}
	s.writeJSON(w, http.StatusOK, providersResponse{Current: s.providers.Current(), Providers: s.providers.Providers()})
}

func (s *Server) handleSwitchProvider(w http.ResponseWriter, r *http.Request) {
	if s.providers == nil {
		s.writeError(w, planner.ErrNoQuoteSource)
		return
	}

	var req providerRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.providers.Switch(req.Name); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, providersResponse{Current: s.providers.Current(), Providers: s.providers.Providers()})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var in planner.PlanInput
	if !s.decode(w, r, &in) {
		return
	}

	plan, err := s.svc.Plan(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writePlan(w, r, plan)
}

func (s *Server) handleParseInstruction(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !s.decode(w, r, &req) {
		return
	}

	inst, err := s.svc.ParseInstruction(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, inst)
}

func (s *Server) handlePlanFromInstruction(w http.ResponseWriter, r *http.Request) {
	var in planner.InstructionInput
	if !s.decode(w, r, &in) {
		return
	}

	plan, err := s.svc.PlanFromInstruction(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writePlan(w, r, plan)
}

// writePlan honours an Accept of text/csv or text/plain, and answers JSON otherwise.
func (s *Server) writePlan(w http.ResponseWriter, r *http.Request, plan *planner.Plan) {
	accept := r.Header.Get("Accept")
	switch {
	case strings.Contains(accept, "text/csv"):
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", planFilename(plan.Symbol)))
		if err := report.WriteCSV(w, plan.Result); err != nil {
			s.logger.Error("Failed to write csv response", zap.Error(err))
		}
	case strings.Contains(accept, "text/plain"):
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := report.WriteText(w, plan.Symbol, plan.Result); err != nil {
			s.logger.Error("Failed to write text response", zap.Error(err))
		}
	default:
		s.writeJSON(w, http.StatusOK, plan)
	}
}

func planFilename(symbol string) string {
	if symbol == "" {
		return "buy_plan.csv"
	}
	return strings.ToLower(symbol) + "_buy_plan.csv"
}

// decode reads a JSON body into v and validates it. It writes the error response and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}

	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
		return false
	}
	return true
}

// writeError maps domain errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, grid.ErrInvalidInput), errors.Is(err, instruction.ErrInstructionParse):
		status = http.StatusBadRequest
	case errors.Is(err, quote.ErrUnknownProvider):
		status = http.StatusNotFound
	case errors.Is(err, grid.ErrNonConvergence):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, quote.ErrPriceQuery):
		status = http.StatusBadGateway
	case errors.Is(err, planner.ErrNoQuoteSource):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}
