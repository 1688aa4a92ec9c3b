package rpc

import (
	"net/http"
)

type registerUserAddressParams struct {
	Caller   string `json:"caller"`
	UserHash string `json:"userHash"`
	Address  string `json:"address"`
}

func (s *Server) handleRewardsRegisterUserAddress(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params registerUserAddressParams
	if err := singleObjectParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddressParam("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	userHash, err := parseHashParam("userHash", params.UserHash)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddressParam("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.RegisterUserAddress(caller, userHash, addr); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"userHash": userHash.String(), "address": addr.String()})
}

type distributeRewardParams struct {
	Caller   string `json:"caller"`
	UserHash string `json:"userHash"`
	IsOnTime bool   `json:"isOnTime"`
}

func (s *Server) handleRewardsDistributeReward(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params distributeRewardParams
	if err := singleObjectParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddressParam("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	userHash, err := parseHashParam("userHash", params.UserHash)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	dist, err := s.node.DistributeReward(caller, userHash, params.IsOnTime)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, rewardOutcomeResult{
		Amount:           bigString(dist.Amount),
		ConsecutiveCount: dist.ConsecutiveCount,
		BonusApplied:     dist.BonusApplied,
	})
}

type userRewardStatsResult struct {
	ConsecutiveCount uint32 `json:"consecutiveCount"`
	TotalEarned      string `json:"totalEarned"`
	Balance          string `json:"balance"`
	Address          string `json:"address,omitempty"`
}

func (s *Server) handleRewardsGetUserRewardStats(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params userHashParams
	if err := singleObjectParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	userHash, err := parseHashParam("userHash", params.UserHash)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	stats, err := s.node.GetUserRewardStats(userHash)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	result := userRewardStatsResult{
		ConsecutiveCount: stats.ConsecutiveCount,
		TotalEarned:      bigString(stats.TotalEarned),
		Balance:          bigString(stats.Balance),
	}
	if !stats.Address.IsZero() {
		result.Address = stats.Address.String()
	}
	writeResult(w, req.ID, result)
}

type rewardInfoResult struct {
	BasePerPayment  string `json:"basePerPayment"`
	BonusThreshold  uint32 `json:"bonusThreshold"`
	BonusMultiplier uint32 `json:"bonusMultiplier"`
	ReserveBalance  string `json:"reserveBalance"`
}

func (s *Server) handleRewardsRewardInfo(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "no parameters expected", nil)
		return
	}
	info := s.node.RewardInfo()
	reserve, err := s.node.ReserveBalance()
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, rewardInfoResult{
		BasePerPayment:  bigString(info.BasePerPayment),
		BonusThreshold:  info.BonusThreshold,
		BonusMultiplier: info.BonusMultiplier,
		ReserveBalance:  bigString(reserve),
	})
}

type mintAdditionalParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

func (s *Server) handleRewardsMintAdditional(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params mintAdditionalParams
	if err := singleObjectParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddressParam("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmountParam("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.MintAdditional(caller, amount); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	reserve, err := s.node.ReserveBalance()
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"reserveBalance": bigString(reserve)})
}

type balanceOfParams struct {
	Address string `json:"address"`
}

func (s *Server) handleRewardsBalanceOf(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params balanceOfParams
	if err := singleObjectParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddressParam("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	balance, err := s.node.BalanceOf(addr)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"address": addr.String(), "balance": bigString(balance)})
}

type approveParams struct {
	Caller  string `json:"caller"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

func (s *Server) handleRewardsApprove(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params approveParams
	if err := singleObjectParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddressParam("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	spender, err := parseAddressParam("spender", params.Spender)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmountParam("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.Approve(caller, spender, amount); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"spender": spender.String(), "allowance": amount.String()})
}

type allowanceParams struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
}

func (s *Server) handleRewardsAllowance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params allowanceParams
	if err := singleObjectParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddressParam("owner", params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	spender, err := parseAddressParam("spender", params.Spender)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	allowance, err := s.node.Allowance(owner, spender)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"allowance": bigString(allowance)})
}

type callerAuthorizationParams struct {
	Caller     string `json:"caller"`
	Principal  string `json:"principal"`
	Authorized bool   `json:"authorized"`
}

func (s *Server) handleRewardsSetCallerAuthorization(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params callerAuthorizationParams
	if err := singleObjectParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddressParam("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	principal, err := parseAddressParam("principal", params.Principal)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.SetCallerAuthorization(caller, principal, params.Authorized); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"authorized": params.Authorized})
}
