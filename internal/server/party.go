package server

import (
	"fmt"
	"net/http"

	"aimdot-bot/internal/config"
	"aimdot-bot/internal/domain"
)

type typesResponse struct {
	Types   []config.PartyType  `json:"types"`
	Classes map[string][]string `json:"classes"`
}

func (s *Server) partyTypes(w http.ResponseWriter, r *http.Request) {
	catalog := s.parties.Catalog()
	writeData(w, http.StatusOK, typesResponse{Types: catalog.Types, Classes: catalog.Classes})
}

func (s *Server) listParties(w http.ResponseWriter, r *http.Request) {
	parties, err := s.parties.ListActive(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if parties == nil {
		parties = []*domain.Party{}
	}
	writeData(w, http.StatusOK, parties)
}

// listAllParties includes completed and cancelled parties.
func (s *Server) listAllParties(w http.ResponseWriter, r *http.Request) {
	parties, err := s.parties.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if parties == nil {
		parties = []*domain.Party{}
	}
	writeData(w, http.StatusOK, parties)
}

type partyDetail struct {
	*domain.Party
	WaitingRoom []domain.Member   `json:"waitingRoom"`
	TeamLists   [][]domain.Member `json:"teamLists"`
	IsJoined    bool              `json:"isJoined"`
	IsCreator   bool              `json:"isCreator"`
}

func newPartyDetail(party *domain.Party, viewerID string) partyDetail {
	d := partyDetail{
		Party:       party,
		WaitingRoom: orEmpty(party.TeamMembers(domain.WaitingRoom)),
		TeamLists:   make([][]domain.Member, party.Teams),
		IsJoined:    party.HasMember(viewerID),
		IsCreator:   party.CreatedBy == viewerID,
	}
	for t := 1; t <= party.Teams; t++ {
		d.TeamLists[t-1] = orEmpty(party.TeamMembers(t))
	}
	return d
}

func orEmpty(m []domain.Member) []domain.Member {
	if m == nil {
		return []domain.Member{}
	}
	return m
}

func (s *Server) getParty(w http.ResponseWriter, r *http.Request) {
	party, err := s.parties.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, newPartyDetail(party, principal(r).UserID))
}

func (s *Server) createParty(w http.ResponseWriter, r *http.Request) {
	var in domain.CreatePartyInput
	if err := s.decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p := principal(r)
	party, err := s.parties.Create(r.Context(), in, p.Identity())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, newPartyDetail(party, p.UserID))
}

func (s *Server) joinParty(w http.ResponseWriter, r *http.Request) {
	var in domain.JoinInput
	if err := s.decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p := principal(r)
	party, err := s.parties.Join(r.Context(), r.PathValue("id"), p.Identity(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, newPartyDetail(party, p.UserID))
}

type moveRequest struct {
	Team   int    `json:"team" validate:"gte=0"`
	UserID string `json:"userId"`
}

// moveMember moves the caller, or another member when the caller created the
// party or is an admin.
func (s *Server) moveMember(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := principal(r)
	partyID := r.PathValue("id")

	target := p.UserID
	if req.UserID != "" && req.UserID != p.UserID {
		party, err := s.parties.Get(r.Context(), partyID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if party.CreatedBy != p.UserID && !p.Role.AtLeast(domain.RoleAdmin) {
			writeError(w, r, fmt.Errorf("%w: only the creator can move other members", domain.ErrForbidden))
			return
		}
		target = req.UserID
	}

	party, err := s.parties.Move(r.Context(), partyID, target, req.Team)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, newPartyDetail(party, p.UserID))
}

func (s *Server) leaveParty(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	party, err := s.parties.Leave(r.Context(), r.PathValue("id"), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, newPartyDetail(party, p.UserID))
}

func (s *Server) cancelParty(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	party, err := s.parties.Cancel(r.Context(), r.PathValue("id"), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, newPartyDetail(party, p.UserID))
}

func (s *Server) recordResults(w http.ResponseWriter, r *http.Request) {
	var results []domain.Result
	if err := decodeJSON(r, &results); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.validate.Var(results, "required,min=1,dive"); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	party, err := s.parties.RecordResults(r.Context(), r.PathValue("id"), results)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, newPartyDetail(party, principal(r).UserID))
}
