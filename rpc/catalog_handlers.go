package rpc

import (
	"math/big"
	"net/http"
	"strings"

	"github.com/Davidcuama/SisteCredito-Hackaton/native/catalog"
)

type createBenefitParams struct {
	Caller      string `json:"caller"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        string `json:"cost"`
	Stock       string `json:"stock"`
	BenefitType string `json:"benefitType"`
}

func (s *Server) handleCatalogCreateBenefit(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params createBenefitParams
	if err := singleObjectParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddressParam("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	cost, err := parseAmountParam("cost", params.Cost)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	// An omitted stock means unlimited, encoded as zero.
	stock := big.NewInt(0)
	if strings.TrimSpace(params.Stock) != "" {
		stock, err = parseAmountParam("stock", params.Stock)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
	}
	benefitType, err := catalog.ParseBenefitType(params.BenefitType)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := s.node.CreateBenefit(caller, params.Name, params.Description, cost, stock, benefitType)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"id": id})
}

type setBenefitActiveParams struct {
	Caller string `json:"caller"`
	ID     uint64 `json:"id"`
	Active bool   `json:"active"`
}

func (s *Server) handleCatalogSetBenefitActive(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params setBenefitActiveParams
	if err := singleObjectParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddressParam("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.SetBenefitActive(caller, params.ID, params.Active); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"active": params.Active})
}

type benefitIDParams struct {
	ID uint64 `json:"id"`
}

type benefitResult struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        string `json:"cost"`
	Stock       string `json:"stock"`
	Unlimited   bool   `json:"unlimited"`
	Active      bool   `json:"active"`
	BenefitType string `json:"benefitType"`
}

func benefitResultFrom(b *catalog.Benefit) benefitResult {
	return benefitResult{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		Cost:        bigString(b.Cost),
		Stock:       bigString(b.Stock),
		Unlimited:   b.Unlimited(),
		Active:      b.Active,
		BenefitType: b.BenefitType.String(),
	}
}

func (s *Server) handleCatalogGetBenefit(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params benefitIDParams
	if err := singleObjectParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	benefit, err := s.node.GetBenefit(params.ID)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, benefitResultFrom(benefit))
}

func (s *Server) handleCatalogGetActiveBenefits(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "no parameters expected", nil)
		return
	}
	ids, err := s.node.GetActiveBenefits()
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string][]uint64{"ids": ids})
}

type redeemBenefitParams struct {
	Caller   string `json:"caller"`
	ID       uint64 `json:"id"`
	Quantity uint64 `json:"quantity"`
}

func (s *Server) handleCatalogRedeemBenefit(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params redeemBenefitParams
	if err := singleObjectParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddressParam("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.RedeemBenefit(caller, params.ID, params.Quantity); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	count, err := s.node.GetUserRedemptionCount(caller, params.ID)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"id": params.ID, "redemptionCount": count})
}

type redemptionCountParams struct {
	Address string `json:"address"`
	ID      uint64 `json:"id"`
}

func (s *Server) handleCatalogGetUserRedemptionCount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params redemptionCountParams
	if err := singleObjectParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddressParam("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	count, err := s.node.GetUserRedemptionCount(addr, params.ID)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"count": count})
}

type redemptionHistoryParams struct {
	Address string `json:"address"`
}

func (s *Server) handleCatalogGetUserRedemptionHistory(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params redemptionHistoryParams
	if err := singleObjectParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddressParam("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	history, err := s.node.GetUserRedemptionHistory(addr)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, history)
}
