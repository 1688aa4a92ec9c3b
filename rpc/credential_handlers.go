package rpc

import (
	"net/http"

	"github.com/Davidcuama/SisteCredito-Hackaton/native/credential"
)

type createUserParams struct {
	Caller   string `json:"caller"`
	UserHash string `json:"userHash"`
}

type createUserResult struct {
	UserHash string `json:"userHash"`
	Score    uint64 `json:"score"`
}

func (s *Server) handleCredentialCreateUser(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params createUserParams
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
	if err := s.node.CreateUser(caller, userHash); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, createUserResult{UserHash: userHash.String(), Score: credential.InitialScore})
}

type registerPaymentParams struct {
	Caller      string `json:"caller"`
	UserHash    string `json:"userHash"`
	Amount      string `json:"amount"`
	DueDate     int64  `json:"dueDate"`
	PaymentDate int64  `json:"paymentDate"`
	EntityHash  string `json:"entityHash"`
	Category    string `json:"category"`
}

type rewardOutcomeResult struct {
	Amount           string `json:"amount"`
	ConsecutiveCount uint32 `json:"consecutiveCount"`
	BonusApplied     bool   `json:"bonusApplied"`
}

type registerPaymentResult struct {
	PaymentHash string               `json:"paymentHash"`
	IsOnTime    bool                 `json:"isOnTime"`
	NewScore    uint64               `json:"newScore"`
	Reward      *rewardOutcomeResult `json:"reward,omitempty"`
	RewardSkip  string               `json:"rewardSkip,omitempty"`
}

func (s *Server) handleCredentialRegisterPayment(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params registerPaymentParams
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
	entityHash, err := parseHashParam("entityHash", params.EntityHash)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmountParam("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}

	payment := &credential.Payment{
		UserHash:    userHash,
		Amount:      amount,
		DueDate:     params.DueDate,
		PaymentDate: params.PaymentDate,
		EntityHash:  entityHash,
		Category:    params.Category,
	}
	result, err := s.node.RegisterPayment(caller, payment)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}

	resp := registerPaymentResult{
		PaymentHash: result.Outcome.PaymentHash.String(),
		IsOnTime:    result.Outcome.IsOnTime,
		NewScore:    result.Outcome.NewScore,
		RewardSkip:  result.RewardSkip,
	}
	if result.Reward != nil {
		resp.Reward = &rewardOutcomeResult{
			Amount:           bigString(result.Reward.Amount),
			ConsecutiveCount: result.Reward.ConsecutiveCount,
			BonusApplied:     result.Reward.BonusApplied,
		}
	}
	writeResult(w, req.ID, resp)
}

type userHashParams struct {
	UserHash string `json:"userHash"`
}

type userProfileResult struct {
	UserHash       string `json:"userHash"`
	TotalPayments  uint64 `json:"totalPayments"`
	OnTimePayments uint64 `json:"onTimePayments"`
	Score          uint64 `json:"score"`
	LastUpdate     int64  `json:"lastUpdate"`
}

func (s *Server) handleCredentialGetUserProfile(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
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
	profile, err := s.node.GetUserProfile(userHash)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, userProfileResult{
		UserHash:       profile.UserHash.String(),
		TotalPayments:  profile.TotalPayments,
		OnTimePayments: profile.OnTimePayments,
		Score:          profile.Score,
		LastUpdate:     profile.LastUpdate,
	})
}

type userStatsResult struct {
	TotalPayments    uint64 `json:"totalPayments"`
	OnTimePayments   uint64 `json:"onTimePayments"`
	Score            uint64 `json:"score"`
	OnTimePercentage uint64 `json:"onTimePercentage"`
}

func (s *Server) handleCredentialGetUserStats(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
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
	stats, err := s.node.GetUserStats(userHash)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, userStatsResult{
		TotalPayments:    stats.TotalPayments,
		OnTimePayments:   stats.OnTimePayments,
		Score:            stats.Score,
		OnTimePercentage: stats.OnTimePercentage,
	})
}

type paymentRecordResult struct {
	PaymentHash string `json:"paymentHash"`
	Amount      string `json:"amount"`
	DueDate     int64  `json:"dueDate"`
	PaymentDate int64  `json:"paymentDate"`
	IsOnTime    bool   `json:"isOnTime"`
	EntityHash  string `json:"entityHash"`
	Category    string `json:"category"`
}

func (s *Server) handleCredentialGetUserPayments(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
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
	records, err := s.node.GetUserPayments(userHash)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	results := make([]paymentRecordResult, len(records))
	for i, rec := range records {
		results[i] = paymentRecordResult{
			PaymentHash: rec.PaymentHash.String(),
			Amount:      bigString(rec.Amount),
			DueDate:     rec.DueDate,
			PaymentDate: rec.PaymentDate,
			IsOnTime:    rec.IsOnTime,
			EntityHash:  rec.EntityHash.String(),
			Category:    rec.Category,
		}
	}
	writeResult(w, req.ID, results)
}

type entityAuthorizationParams struct {
	Caller     string `json:"caller"`
	Entity     string `json:"entity"`
	Authorized bool   `json:"authorized"`
}

func (s *Server) handleCredentialSetEntityAuthorization(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params entityAuthorizationParams
	if err := singleObjectParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddressParam("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	entity, err := parseAddressParam("entity", params.Entity)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.SetEntityAuthorization(caller, entity, params.Authorized); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"authorized": params.Authorized})
}
