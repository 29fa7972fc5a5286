package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"chronicles/crypto"
	"chronicles/gateway/middleware"
	"chronicles/native/assets"
	"chronicles/native/issuance"
	"chronicles/services/issuanced/index"
)

const maxBodyBytes = 1 << 20

var errCallerRequired = errors.New("caller identity required")

func (s *Server) caller(w http.ResponseWriter, r *http.Request) (crypto.Identity, bool) {
	id, ok := middleware.CallerFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: errCallerRequired.Error(), Kind: string(issuance.KindAuthorization)})
		return crypto.ZeroIdentity, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, fmt.Errorf("invalid payload: %w", err))
		return false
	}
	return true
}

func pathIdentity(w http.ResponseWriter, r *http.Request, name string) (crypto.Identity, bool) {
	id, err := crypto.ParseIdentity(chi.URLParam(r, name))
	if err != nil {
		writeBadRequest(w, fmt.Errorf("%s: %w", name, err))
		return crypto.ZeroIdentity, false
	}
	return id, true
}

func pathRole(w http.ResponseWriter, r *http.Request) (issuance.Role, bool) {
	role, err := issuance.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		writeBadRequest(w, err)
		return 0, false
	}
	return role, true
}

// --- reads ---

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.engine.Config(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type quoteResponse struct {
	MinimumPayment uint64         `json:"minimumPayment"`
	Split          issuance.Split `json:"split"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.engine.Config(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	split, err := issuance.CalculateSplit(cfg)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{MinimumPayment: cfg.MinimumPayment, Split: split})
}

func (s *Server) handleGuard(w http.ResponseWriter, r *http.Request) {
	asset, ok := pathIdentity(w, r, "asset")
	if !ok {
		return
	}
	guard, found, err := s.engine.Guard(r.Context(), asset)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "asset identity not claimed"})
		return
	}
	writeJSON(w, http.StatusOK, guard)
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathIdentity(w, r, "asset")
	if !ok {
		return
	}
	asset, err := s.engine.Asset(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathIdentity(w, r, "id")
	if !ok {
		return
	}
	collection, err := s.engine.Collection(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, collection)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathIdentity(w, r, "id")
	if !ok {
		return
	}
	balance, err := s.engine.Balance(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": id, "balance": balance})
}

type balancesResponse struct {
	Accounts []issuance.AccountBalance `json:"accounts"`
	Next     string                    `json:"next,omitempty"`
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	var after crypto.Identity
	if raw := values.Get("after"); raw != "" {
		id, err := crypto.ParseIdentity(raw)
		if err != nil {
			writeBadRequest(w, fmt.Errorf("after: %w", err))
			return
		}
		after = id
	}
	limit := 100
	if raw := values.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, fmt.Errorf("limit: must be a positive integer"))
			return
		}
		limit = parsed
	}
	accounts, err := s.engine.Balances(r.Context(), after, limit)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	resp := balancesResponse{Accounts: accounts}
	if n := len(accounts); n > 0 && n == min(limit, issuance.MaxBalancesPage) {
		resp.Next = accounts[n-1].Account.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRuggedUser(w http.ResponseWriter, r *http.Request) {
	owner, ok := pathIdentity(w, r, "owner")
	if !ok {
		return
	}
	user, err := s.engine.RuggedUser(r.Context(), owner)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func parseQuery(r *http.Request) (index.Query, error) {
	values := r.URL.Query()
	q := index.Query{Role: values.Get("role"), Owner: values.Get("owner")}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("limit: %w", err)
		}
		q.Limit = limit
	}
	if raw := values.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("offset: %w", err)
		}
		q.Offset = offset
	}
	for _, bound := range []struct {
		key string
		dst *time.Time
	}{{"since", &q.Since}, {"until", &q.Until}} {
		raw := values.Get(bound.key)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return q, fmt.Errorf("%s: %w", bound.key, err)
		}
		*bound.dst = parsed
	}
	if q.Role != "" {
		if _, err := issuance.ParseRole(q.Role); err != nil {
			return q, err
		}
	}
	return q, nil
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "mint index disabled"})
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	rows, err := s.index.Gallery(r.Context(), q)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mints": rows})
}

func (s *Server) handleFeeTotals(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "mint index disabled"})
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	totals, err := s.index.FeeTotals(r.Context(), q)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"totals": totals})
}

// --- admin ---

type initializeRequest struct {
	Bumps          *issuance.Bumps       `json:"bumps"`
	Fees           *issuance.FeeSettings `json:"fees"`
	MinimumPayment uint64                `json:"minimumPayment"`
	Standard       crypto.Identity       `json:"standard"`
	Scammed        crypto.Identity       `json:"scammed"`
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req initializeRequest
	if !decode(w, r, &req) {
		return
	}
	bumps := s.engine.Authorities().Bumps
	if req.Bumps != nil {
		bumps = *req.Bumps
	}
	cfg, err := s.engine.Initialize(r.Context(), caller, issuance.InitializeParams{
		Bumps:          bumps,
		Fees:           req.Fees,
		MinimumPayment: req.MinimumPayment,
		Standard:       req.Standard,
		Scammed:        req.Scammed,
	})
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

type createCollectionRequest struct {
	ID          crypto.Identity `json:"id"`
	Name        string          `json:"name"`
	URI         string          `json:"uri"`
	Cap         *uint64         `json:"cap"`
	EditionName string          `json:"editionName"`
	EditionURI  string          `json:"editionUri"`
	Role        string          `json:"role"`
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req createCollectionRequest
	if !decode(w, r, &req) {
		return
	}
	params := issuance.CreateCollectionParams{
		ID:          req.ID,
		Name:        req.Name,
		URI:         req.URI,
		EditionName: req.EditionName,
		EditionURI:  req.EditionURI,
	}
	if req.Cap != nil {
		params.HasCap = true
		params.Cap = *req.Cap
	}
	if strings.TrimSpace(req.Role) != "" {
		role, err := issuance.ParseRole(req.Role)
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		params.Role = role
	}
	cfg, err := s.engine.CreateCollection(r.Context(), caller, params)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

func (s *Server) handleUpdateCollectionRef(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	role, ok := pathRole(w, r)
	if !ok {
		return
	}
	var req struct {
		ID crypto.Identity `json:"id"`
	}
	if !decode(w, r, &req) {
		return
	}
	cfg, err := s.engine.UpdateCollectionRef(r.Context(), caller, role, req.ID)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleUpdateCollectionMetadata(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	role, ok := pathRole(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
		URI  string `json:"uri"`
	}
	if !decode(w, r, &req) {
		return
	}
	cfg, err := s.engine.UpdateCollectionMetadata(r.Context(), caller, role, req.Name, req.URI)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleAddRoyalties(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		BasisPoints uint16           `json:"basisPoints"`
		Creators    []assets.Creator `json:"creators"`
	}
	if !decode(w, r, &req) {
		return
	}
	cfg, err := s.engine.AddCollectionRoyalties(r.Context(), caller, req.BasisPoints, req.Creators)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleUpdateFees(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req issuance.FeeSettings
	if !decode(w, r, &req) {
		return
	}
	cfg, err := s.engine.UpdateFeeSettings(r.Context(), caller, req)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleUpdateMinimumPayment(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount uint64 `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	cfg, err := s.engine.UpdateMinimumPayment(r.Context(), caller, req.Amount)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleTogglePause(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	paused, err := s.engine.TogglePaused(r.Context(), caller)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": paused})
}

func (s *Server) handleVerifyRugged(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	owner, ok := pathIdentity(w, r, "owner")
	if !ok {
		return
	}
	user, err := s.engine.VerifyRuggedUser(r.Context(), caller, owner)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// --- holders ---

func (s *Server) handleRegisterRugged(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		CompromisedWallet crypto.Identity `json:"compromisedWallet"`
	}
	if !decode(w, r, &req) {
		return
	}
	user, err := s.engine.RegisterRuggedUser(r.Context(), caller, req.CompromisedWallet)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleAddFreezeDelegate(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	asset, ok := pathIdentity(w, r, "asset")
	if !ok {
		return
	}
	var req struct {
		Frozen   bool            `json:"frozen"`
		Delegate crypto.Identity `json:"delegate"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.AddFreezeDelegate(r.Context(), caller, asset, req.Frozen, req.Delegate); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFreeze(w http.ResponseWriter, r *http.Request) {
	s.handleFreezeChange(w, r, true)
}

func (s *Server) handleThaw(w http.ResponseWriter, r *http.Request) {
	s.handleFreezeChange(w, r, false)
}

func (s *Server) handleFreezeChange(w http.ResponseWriter, r *http.Request, frozen bool) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	asset, ok := pathIdentity(w, r, "asset")
	if !ok {
		return
	}
	var err error
	if frozen {
		err = s.engine.FreezeAsset(r.Context(), caller, asset)
	} else {
		err = s.engine.ThawAsset(r.Context(), caller, asset)
	}
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- mint ---

func (s *Server) handleMintStandard(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req issuance.MintStandardParams
	if !decode(w, r, &req) {
		return
	}
	receipt, err := s.engine.MintStandard(r.Context(), caller, req)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (s *Server) handleMintScammed(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req issuance.MintScammedParams
	if !decode(w, r, &req) {
		return
	}
	receipt, err := s.engine.MintScammed(r.Context(), caller, req)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

type mintRuggedRequest struct {
	Asset       crypto.Identity `json:"asset"`
	Traits      string          `json:"traits"`
	Destination crypto.Identity `json:"destination"`
}

func (s *Server) handleMintRugged(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req mintRuggedRequest
	if !decode(w, r, &req) {
		return
	}
	traits, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(req.Traits), "0x"))
	if err != nil {
		writeBadRequest(w, fmt.Errorf("traits must be hex: %w", err))
		return
	}
	receipt, err := s.engine.MintRugged(r.Context(), caller, issuance.MintRuggedParams{
		Asset:       req.Asset,
		Traits:      traits,
		Destination: req.Destination,
	})
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}
