package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/Davidcuama/SisteCredito-Hackaton/core"
	"github.com/Davidcuama/SisteCredito-Hackaton/crypto"
	"github.com/Davidcuama/SisteCredito-Hackaton/native/catalog"
	"github.com/Davidcuama/SisteCredito-Hackaton/native/credential"
	"github.com/Davidcuama/SisteCredito-Hackaton/native/rewards"
	"github.com/Davidcuama/SisteCredito-Hackaton/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

// Server serves the credential ledger over JSON-RPC 2.0. Mutating methods
// require a bearer token; every client source is rate limited independently.
type Server struct {
	node *core.Node

	authToken string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewServer builds a server over the node. The bearer token is read from the
// CREDD_RPC_TOKEN environment variable; mutating methods are rejected until
// one is configured.
func NewServer(node *core.Node) *Server {
	token := strings.TrimSpace(os.Getenv("CREDD_RPC_TOKEN"))
	return &Server{
		node:      node,
		authToken: token,
		limiters:  make(map[string]*rate.Limiter),
		limit:     rate.Limit(120.0 / 60.0),
		burst:     30,
	}
}

// SetRateLimit overrides the per-source request budget.
func (s *Server) SetRateLimit(perMinute float64, burst int) {
	if perMinute <= 0 || burst <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = rate.Limit(perMinute / 60.0)
	s.burst = burst
	s.limiters = make(map[string]*rate.Limiter)
}

// Start blocks serving the RPC endpoint and the Prometheus scrape handler.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("starting JSON-RPC server", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// statusWriter captures the HTTP status written by a handler so the request
// can be recorded to the module metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	module := moduleForMethod(req.Method)

	source := clientSource(r)
	if !s.allowSource(source) {
		observability.ModuleMetrics().RecordThrottle(module, "rate_limit")
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "request rate limit exceeded", source)
		return
	}

	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	s.dispatch(sw, r, req)
	observability.ModuleMetrics().Observe(module, req.Method, sw.status, time.Since(start))
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	switch req.Method {
	case "credential_createUser":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleCredentialCreateUser(w, r, req)
	case "credential_registerPayment":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleCredentialRegisterPayment(w, r, req)
	case "credential_getUserProfile":
		s.handleCredentialGetUserProfile(w, r, req)
	case "credential_getUserStats":
		s.handleCredentialGetUserStats(w, r, req)
	case "credential_getUserPayments":
		s.handleCredentialGetUserPayments(w, r, req)
	case "credential_setEntityAuthorization":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleCredentialSetEntityAuthorization(w, r, req)
	case "rewards_registerUserAddress":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleRewardsRegisterUserAddress(w, r, req)
	case "rewards_distributeReward":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleRewardsDistributeReward(w, r, req)
	case "rewards_getUserRewardStats":
		s.handleRewardsGetUserRewardStats(w, r, req)
	case "rewards_rewardInfo":
		s.handleRewardsRewardInfo(w, r, req)
	case "rewards_mintAdditional":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleRewardsMintAdditional(w, r, req)
	case "rewards_balanceOf":
		s.handleRewardsBalanceOf(w, r, req)
	case "rewards_approve":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleRewardsApprove(w, r, req)
	case "rewards_allowance":
		s.handleRewardsAllowance(w, r, req)
	case "rewards_setCallerAuthorization":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleRewardsSetCallerAuthorization(w, r, req)
	case "catalog_createBenefit":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleCatalogCreateBenefit(w, r, req)
	case "catalog_setBenefitActive":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleCatalogSetBenefitActive(w, r, req)
	case "catalog_getBenefit":
		s.handleCatalogGetBenefit(w, r, req)
	case "catalog_getActiveBenefits":
		s.handleCatalogGetActiveBenefits(w, r, req)
	case "catalog_redeemBenefit":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleCatalogRedeemBenefit(w, r, req)
	case "catalog_getUserRedemptionCount":
		s.handleCatalogGetUserRedemptionCount(w, r, req)
	case "catalog_getUserRedemptionHistory":
		s.handleCatalogGetUserRedemptionHistory(w, r, req)
	case "events_poll":
		s.handleEventsPoll(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
	}
}

func moduleForMethod(method string) string {
	if idx := strings.Index(method, "_"); idx > 0 {
		return method[:idx]
	}
	return "rpc"
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

func (s *Server) allowSource(source string) bool {
	if source == "" {
		source = "unknown"
	}
	s.mu.Lock()
	limiter, ok := s.limiters[source]
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
		s.limiters[source] = limiter
	}
	s.mu.Unlock()
	return limiter.Allow()
}

func clientSource(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			candidate := strings.TrimSpace(parts[0])
			if candidate != "" {
				return candidate
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeModuleError maps the ledger's sentinel errors onto RPC error codes.
func writeModuleError(w http.ResponseWriter, id interface{}, err error) {
	status, code := http.StatusInternalServerError, codeServerError
	switch {
	case errors.Is(err, credential.ErrNotAuthorized),
		errors.Is(err, rewards.ErrNotAuthorized),
		errors.Is(err, rewards.ErrNotOwner),
		errors.Is(err, catalog.ErrNotOwner),
		errors.Is(err, core.ErrNotOwner):
		status, code = http.StatusForbidden, codeUnauthorized
	case errors.Is(err, credential.ErrUnknownUser),
		errors.Is(err, catalog.ErrUnknownBenefit),
		errors.Is(err, rewards.ErrNoAddressBound):
		status, code = http.StatusNotFound, codeServerError
	case errors.Is(err, credential.ErrUserExists),
		errors.Is(err, rewards.ErrAlreadyBound):
		status, code = http.StatusConflict, codeServerError
	case errors.Is(err, credential.ErrInvalidPayment),
		errors.Is(err, rewards.ErrInvalidAmount),
		errors.Is(err, catalog.ErrInvalidBenefit),
		errors.Is(err, catalog.ErrInvalidQuantity):
		status, code = http.StatusBadRequest, codeInvalidParams
	case errors.Is(err, rewards.ErrInsufficientReserve),
		errors.Is(err, rewards.ErrInsufficientFunds),
		errors.Is(err, rewards.ErrInsufficientAllowance),
		errors.Is(err, catalog.ErrInactive),
		errors.Is(err, catalog.ErrOutOfStock):
		status, code = http.StatusBadRequest, codeServerError
	}
	writeError(w, status, id, code, err.Error(), nil)
}

// --- shared param decoding ---

func singleObjectParam(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("parameter object required")
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return fmt.Errorf("invalid parameter object: %s", err)
	}
	return nil
}

func parseHashParam(field, value string) (crypto.Hash, error) {
	h, err := crypto.ParseHash(value)
	if err != nil {
		return crypto.Hash{}, fmt.Errorf("invalid %s: %s", field, err)
	}
	return h, nil
}

func parseAddressParam(field, value string) (crypto.Address, error) {
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("invalid %s: %s", field, err)
	}
	return addr, nil
}

func parseAmountParam(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("%s required", field)
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %q is not a base-10 integer", field, value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s: must not be negative", field)
	}
	return amount, nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
