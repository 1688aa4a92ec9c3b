package rpc

import (
	"net/http"

	"github.com/Davidcuama/SisteCredito-Hackaton/core"
)

type eventsPollParams struct {
	Cursor string `json:"cursor"`
	Limit  int    `json:"limit"`
}

type eventsPollResult struct {
	Events     []core.EventUpdate `json:"events"`
	NextCursor string             `json:"nextCursor"`
}

// handleEventsPoll returns committed events after the supplied cursor so a UI
// can refresh incrementally without holding a subscription open.
func (s *Server) handleEventsPoll(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	params := eventsPollParams{}
	if len(req.Params) > 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "too many parameters", nil)
		return
	}
	if len(req.Params) == 1 {
		if err := singleObjectParam(req, &params); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
	}
	updates, err := s.node.Events(params.Cursor, params.Limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	next := params.Cursor
	if len(updates) > 0 {
		next = updates[len(updates)-1].Cursor
	}
	writeResult(w, req.ID, eventsPollResult{Events: updates, NextCursor: next})
}
