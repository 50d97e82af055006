package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"financas/internal/gateway"
	applog "financas/internal/log"
)

// accepted answers a write handed to the gateway. Writes that already
// failed, such as a refused enqueue, are reported right away. With
// ?wait=true the handler blocks until the store committed, so callers that
// need read-your-writes see the store's verdict.
func (s *Server) accepted(w http.ResponseWriter, r *http.Request, op, id string, p *gateway.Pending) {
	if err := p.Err(); err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		ctx, cancel := context.WithTimeout(r.Context(), waitTimeout)
		defer cancel()
		if err := p.Wait(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			writeServiceError(w, r, op, err)
			return
		}
	}

	applog.FromContext(r.Context()).DebugContext(r.Context(), "Write accepted",
		applog.FieldOperation, op,
		applog.FieldTransactionID, id)
	Accepted(id).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	const op = "create_transaction"
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	in, err := ParseTransactionInput(p)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}

	id, pending, err := s.ledger.AddTransaction(r.Context(), userFrom(r.Context()).ID, in)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	s.accepted(w, r, op, id, pending)
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	const op = "edit_transaction"
	id := r.PathValue("id")
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	edit, err := ParseTransactionEdit(p)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}

	pending, err := s.ledger.EditTransaction(r.Context(), userFrom(r.Context()).ID, id, edit)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	s.accepted(w, r, op, id, pending)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	const op = "delete_transaction"
	id := r.PathValue("id")
	pending, err := s.ledger.DeleteTransaction(r.Context(), userFrom(r.Context()).ID, id)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	s.accepted(w, r, op, id, pending)
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	const op = "mark_paid"
	id := r.PathValue("id")
	pending, err := s.ledger.MarkPaid(r.Context(), userFrom(r.Context()).ID, id)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	s.accepted(w, r, op, id, pending)
}

func (s *Server) handleCreateInstallments(w http.ResponseWriter, r *http.Request) {
	const op = "create_installments"
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	plan, err := ParseInstallmentPlan(p)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}

	parcelaID, pending, err := s.ledger.CreateInstallments(r.Context(), userFrom(r.Context()).ID, plan)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	s.accepted(w, r, op, parcelaID, pending)
}

func (s *Server) handleDeleteInstallments(w http.ResponseWriter, r *http.Request) {
	const op = "delete_installments"
	parcelaID := r.PathValue("parcelaId")
	pending, err := s.ledger.DeleteInstallmentGroup(r.Context(), userFrom(r.Context()).ID, parcelaID)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	s.accepted(w, r, op, parcelaID, pending)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	const op = "create_group"
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	name, tipo, err := ParseNamed(p)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}

	id, pending, err := s.ledger.AddGroup(r.Context(), userFrom(r.Context()).ID, name, tipo)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	s.accepted(w, r, op, id, pending)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.accepted(w, r, "delete_group", id, s.ledger.DeleteGroup(r.Context(), userFrom(r.Context()).ID, id))
}

func (s *Server) handleCreateDescription(w http.ResponseWriter, r *http.Request) {
	const op = "create_description"
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	name, tipo, err := ParseNamed(p)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}

	id, pending, err := s.ledger.AddDescription(r.Context(), userFrom(r.Context()).ID, name, tipo)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	s.accepted(w, r, op, id, pending)
}

func (s *Server) handleDeleteDescription(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.accepted(w, r, "delete_description", id, s.ledger.DeleteDescription(r.Context(), userFrom(r.Context()).ID, id))
}
