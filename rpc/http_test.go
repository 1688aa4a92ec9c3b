package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Davidcuama/SisteCredito-Hackaton/core"
	"github.com/Davidcuama/SisteCredito-Hackaton/crypto"
	"github.com/Davidcuama/SisteCredito-Hackaton/native/rewards"
	"github.com/Davidcuama/SisteCredito-Hackaton/storage"
)

const testToken = "rpc-secret"

func testAddress(t *testing.T, seed byte) crypto.Address {
	t.Helper()
	buf := make([]byte, crypto.AddressLength)
	for i := range buf {
		buf[i] = seed
	}
	return crypto.NewAddress(crypto.CredPrefix, buf)
}

func newTestServer(t *testing.T) (*Server, crypto.Address, crypto.Address, crypto.Address) {
	t.Helper()
	t.Setenv("CREDD_RPC_TOKEN", testToken)

	owner := testAddress(t, 0x01)
	entity := testAddress(t, 0x02)
	caller := testAddress(t, 0x03)

	node, err := core.NewNode(storage.NewMemDB(), core.Genesis{
		Owner:             owner,
		ReportingEntities: []crypto.Address{entity},
		AuthorizedCallers: []crypto.Address{caller},
		RewardParams:      rewards.DefaultParams(),
	})
	require.NoError(t, err)
	return NewServer(node), owner, entity, caller
}

func rpcCall(t *testing.T, s *Server, method string, params interface{}, authed bool) (*httptest.ResponseRecorder, RPCResponse) {
	t.Helper()
	req := map[string]interface{}{
		"jsonrpc": jsonRPCVersion,
		"id":      1,
		"method":  method,
	}
	if params != nil {
		req["params"] = []interface{}{params}
	} else {
		req["params"] = []interface{}{}
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if authed {
		httpReq.Header.Set("Authorization", "Bearer "+testToken)
	}
	recorder := httptest.NewRecorder()
	s.handle(recorder, httpReq)

	var resp RPCResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	return recorder, resp
}

func resultInto(t *testing.T, resp RPCResponse, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestUnknownMethod(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	recorder, resp := rpcCall(t, s, "credential_unknown", nil, false)
	require.Equal(t, http.StatusNotFound, recorder.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestWriteRequiresBearerToken(t *testing.T) {
	s, _, entity, _ := newTestServer(t)
	userHash := crypto.UserHash("id-900", "pepper")

	recorder, resp := rpcCall(t, s, "credential_createUser", createUserParams{
		Caller:   entity.String(),
		UserHash: userHash.String(),
	}, false)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	// The rejected call must not have touched state.
	recorder, resp = rpcCall(t, s, "credential_getUserProfile", userHashParams{UserHash: userHash.String()}, false)
	require.Equal(t, http.StatusNotFound, recorder.Code)
	require.NotNil(t, resp.Error)
}

func TestCredentialLifecycle(t *testing.T) {
	s, _, entity, caller := newTestServer(t)
	userHash := crypto.UserHash("id-901", "pepper")
	entityHash := crypto.EntityHash("Banco Azul", "900100200")
	wallet := testAddress(t, 0x44)

	recorder, resp := rpcCall(t, s, "credential_createUser", createUserParams{
		Caller:   entity.String(),
		UserHash: userHash.String(),
	}, true)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Nil(t, resp.Error)

	var created createUserResult
	resultInto(t, resp, &created)
	require.Equal(t, uint64(500), created.Score)

	// A payment before any address binding records credit but skips the
	// reward leg.
	recorder, resp = rpcCall(t, s, "credential_registerPayment", registerPaymentParams{
		Caller:      entity.String(),
		UserHash:    userHash.String(),
		Amount:      "250000",
		DueDate:     1_700_000_000,
		PaymentDate: 1_699_990_000,
		EntityHash:  entityHash.String(),
		Category:    "loan",
	}, true)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Nil(t, resp.Error)

	var outcome registerPaymentResult
	resultInto(t, resp, &outcome)
	require.True(t, outcome.IsOnTime)
	require.Equal(t, uint64(1000), outcome.NewScore)
	require.Nil(t, outcome.Reward)
	require.Equal(t, "no_address_bound", outcome.RewardSkip)

	recorder, resp = rpcCall(t, s, "rewards_registerUserAddress", registerUserAddressParams{
		Caller:   caller.String(),
		UserHash: userHash.String(),
		Address:  wallet.String(),
	}, true)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Nil(t, resp.Error)

	recorder, resp = rpcCall(t, s, "credential_registerPayment", registerPaymentParams{
		Caller:      entity.String(),
		UserHash:    userHash.String(),
		Amount:      "250000",
		DueDate:     1_702_000_000,
		PaymentDate: 1_702_000_000,
		EntityHash:  entityHash.String(),
		Category:    "loan",
	}, true)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Nil(t, resp.Error)

	resultInto(t, resp, &outcome)
	require.NotNil(t, outcome.Reward)
	require.Equal(t, rewards.Tokens(100).String(), outcome.Reward.Amount)
	require.Equal(t, uint32(1), outcome.Reward.ConsecutiveCount)
	require.False(t, outcome.Reward.BonusApplied)

	recorder, resp = rpcCall(t, s, "credential_getUserStats", userHashParams{UserHash: userHash.String()}, false)
	require.Equal(t, http.StatusOK, recorder.Code)
	var stats userStatsResult
	resultInto(t, resp, &stats)
	require.Equal(t, uint64(2), stats.TotalPayments)
	require.Equal(t, uint64(100), stats.OnTimePercentage)

	recorder, resp = rpcCall(t, s, "rewards_balanceOf", balanceOfParams{Address: wallet.String()}, false)
	require.Equal(t, http.StatusOK, recorder.Code)
	var balance map[string]string
	resultInto(t, resp, &balance)
	require.Equal(t, rewards.Tokens(100).String(), balance["balance"])

	recorder, resp = rpcCall(t, s, "credential_getUserPayments", userHashParams{UserHash: userHash.String()}, false)
	require.Equal(t, http.StatusOK, recorder.Code)
	var payments []paymentRecordResult
	resultInto(t, resp, &payments)
	require.Len(t, payments, 2)
	require.Equal(t, "loan", payments[0].Category)
}

func TestInvalidHashParam(t *testing.T) {
	s, _, entity, _ := newTestServer(t)
	recorder, resp := rpcCall(t, s, "credential_createUser", createUserParams{
		Caller:   entity.String(),
		UserHash: "0x1234",
	}, true)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestUnauthorizedEntityMapsToForbidden(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	stranger := testAddress(t, 0x55)
	userHash := crypto.UserHash("id-902", "pepper")

	recorder, resp := rpcCall(t, s, "credential_createUser", createUserParams{
		Caller:   stranger.String(),
		UserHash: userHash.String(),
	}, true)
	require.Equal(t, http.StatusForbidden, recorder.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestCatalogOverRPC(t *testing.T) {
	s, owner, _, _ := newTestServer(t)

	recorder, resp := rpcCall(t, s, "catalog_createBenefit", createBenefitParams{
		Caller:      owner.String(),
		Name:        "Quarterly fee waiver",
		Description: "Waives the account maintenance fee",
		Cost:        rewards.Tokens(40).String(),
		Stock:       "10",
		BenefitType: "fee_reduction",
	}, true)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Nil(t, resp.Error)

	var created map[string]uint64
	resultInto(t, resp, &created)
	require.Equal(t, uint64(1), created["id"])

	recorder, resp = rpcCall(t, s, "catalog_getBenefit", benefitIDParams{ID: 1}, false)
	require.Equal(t, http.StatusOK, recorder.Code)
	var benefit benefitResult
	resultInto(t, resp, &benefit)
	require.Equal(t, "fee_reduction", benefit.BenefitType)
	require.True(t, benefit.Active)

	recorder, resp = rpcCall(t, s, "catalog_getActiveBenefits", nil, false)
	require.Equal(t, http.StatusOK, recorder.Code)
	var active map[string][]uint64
	resultInto(t, resp, &active)
	require.Equal(t, []uint64{1}, active["ids"])

	recorder, resp = rpcCall(t, s, "catalog_getBenefit", benefitIDParams{ID: 9}, false)
	require.Equal(t, http.StatusNotFound, recorder.Code)
	require.NotNil(t, resp.Error)
}

func TestCreateBenefitWithoutStockIsUnlimited(t *testing.T) {
	s, owner, _, _ := newTestServer(t)

	recorder, resp := rpcCall(t, s, "catalog_createBenefit", createBenefitParams{
		Caller:      owner.String(),
		Name:        "Priority support",
		Description: "Front-of-queue support line",
		Cost:        rewards.Tokens(10).String(),
		BenefitType: "premium_access",
	}, true)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Nil(t, resp.Error)

	var created map[string]uint64
	resultInto(t, resp, &created)

	recorder, resp = rpcCall(t, s, "catalog_getBenefit", benefitIDParams{ID: created["id"]}, false)
	require.Equal(t, http.StatusOK, recorder.Code)
	var benefit benefitResult
	resultInto(t, resp, &benefit)
	require.True(t, benefit.Unlimited)
	require.Equal(t, "0", benefit.Stock)
}

func TestEventsPoll(t *testing.T) {
	s, _, entity, _ := newTestServer(t)
	userHash := crypto.UserHash("id-903", "pepper")

	_, resp := rpcCall(t, s, "credential_createUser", createUserParams{
		Caller:   entity.String(),
		UserHash: userHash.String(),
	}, true)
	require.Nil(t, resp.Error)

	recorder, resp := rpcCall(t, s, "events_poll", eventsPollParams{}, false)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Nil(t, resp.Error)

	var polled eventsPollResult
	resultInto(t, resp, &polled)
	require.Len(t, polled.Events, 1)
	require.Equal(t, "credential.user.created", polled.Events[0].Event.Type)
	require.NotEmpty(t, polled.NextCursor)

	// Polling from the returned cursor yields nothing new.
	recorder, resp = rpcCall(t, s, "events_poll", eventsPollParams{Cursor: polled.NextCursor}, false)
	require.Equal(t, http.StatusOK, recorder.Code)
	var again eventsPollResult
	resultInto(t, resp, &again)
	require.Empty(t, again.Events)
	require.Equal(t, polled.NextCursor, again.NextCursor)
}

func TestRateLimitRejectsBurst(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	s.SetRateLimit(60, 1)

	recorder, _ := rpcCall(t, s, "rewards_rewardInfo", nil, false)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder, resp := rpcCall(t, s, "rewards_rewardInfo", nil, false)
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeRateLimited, resp.Error.Code)
}
