package http

import (
	"context"
	"net/http"

	"financas/internal/core"
)

func (s *Server) groupIndex(ctx context.Context, userID string) (core.GroupIndex, error) {
	gs, err := s.ledger.Groups(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	return core.NewGroupIndex(gs), nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	d, err := s.ledger.Dashboard(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		writeServiceError(w, r, "summary", err)
		return
	}
	NewJSONResponse().Body(toDashboardView(d)).Write(w)
}

// handleReport serves the filtered report of one tipo, or of both when tipo
// is absent or "all".
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	const op = "report"
	userID := userFrom(r.Context()).ID
	query := r.URL.Query()

	tipo, err := ParseKindParam(query)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	f, err := ParseReportFilter(query)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}

	report, err := s.ledger.Report(r.Context(), userID, tipo, f)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	groups, err := s.groupIndex(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	NewJSONResponse().Body(toReportView(report, groups)).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	const op = "list_transactions"
	userID := userFrom(r.Context()).ID

	f, err := ParseReportFilter(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	ts, err := s.ledger.Transactions(r.Context(), userID, f)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	groups, err := s.groupIndex(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	NewJSONResponse().Body(toTransactionViews(ts, groups)).Write(w)
}

func (s *Server) handleListInstallments(w http.ResponseWriter, r *http.Request) {
	const op = "list_installments"
	userID := userFrom(r.Context()).ID

	members, err := s.ledger.Installments(r.Context(), userID, r.PathValue("parcelaId"))
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	groups, err := s.groupIndex(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	NewJSONResponse().Body(toTransactionViews(members, groups)).Write(w)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	tipo, err := ParseKindParam(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, "list_groups", err)
		return
	}
	gs, err := s.ledger.Groups(r.Context(), userFrom(r.Context()).ID, tipo)
	if err != nil {
		writeServiceError(w, r, "list_groups", err)
		return
	}
	NewJSONResponse().Body(toGroupViews(gs)).Write(w)
}

func (s *Server) handleListDescriptions(w http.ResponseWriter, r *http.Request) {
	tipo, err := ParseKindParam(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, "list_descriptions", err)
		return
	}
	ds, err := s.ledger.Descriptions(r.Context(), userFrom(r.Context()).ID, tipo)
	if err != nil {
		writeServiceError(w, r, "list_descriptions", err)
		return
	}
	NewJSONResponse().Body(toDescriptionViews(ds)).Write(w)
}
