package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"nftmarket/core"
	"nftmarket/core/genesis"
	"nftmarket/crypto"
	"nftmarket/indexer"
	"nftmarket/native/assets"
	"nftmarket/native/marketplace"
	"nftmarket/storage"
)

const (
	testToken     = "rpc-test-token"
	testJWTSecret = "rpc-test-secret"
)

var (
	operator = addr(0xA0)
	seller   = addr(0x01)
	buyer    = addr(0x02)
	artAddr  = assets.DeriveAddress(seller, 0)
)

func addr(last byte) [20]byte {
	var out [20]byte
	out[0] = 0x22
	out[19] = last
	return out
}

func hexOf(a [20]byte) string { return crypto.HexAddress(a) }

type rpcResult struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func newTestNode(t *testing.T) *core.Node {
	t.Helper()
	spec, err := genesis.Parse([]byte(fmt.Sprintf(`
accounts:
  - address: %[1]s
    balance: "1000"
collections:
  - name: Art
    kind: single
    owner: %[2]s
    mints:
      - to: %[2]s
        uri: ipfs://art/1
`, hexOf(buyer), hexOf(seller))))
	require.NoError(t, err)
	node, err := core.NewNode(storage.NewMemDB(), core.Config{Operator: operator, CommissionBps: 100}, spec)
	require.NoError(t, err)
	return node
}

func newTestHandler(t *testing.T, cfg ServerConfig, withIndex bool) (http.Handler, *core.Node) {
	t.Helper()
	node := newTestNode(t)
	var ix *indexer.Indexer
	if withIndex {
		db, err := indexer.Open("sqlite", filepath.Join(t.TempDir(), "index.db"))
		require.NoError(t, err)
		ix, err = indexer.New(db)
		require.NoError(t, err)
		node.Subscribe(ix)
	}
	return NewServer(node, ix, cfg).Handler(), node
}

func call(t *testing.T, h http.Handler, token, method string, params interface{}) (int, rpcResult) {
	t.Helper()
	payload := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.RemoteAddr = "10.0.0.1:5555"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out rpcResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestHealthAndMetrics(t *testing.T) {
	h, _ := newTestHandler(t, ServerConfig{}, false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())

	call(t, h, "", "market_numberOfOffer", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "nftmarket_rpc_requests_total")
}

func TestMarketFlowOverRPC(t *testing.T) {
	h, node := newTestHandler(t, ServerConfig{AuthToken: testToken}, true)

	status, res := call(t, h, testToken, "collection_approve", map[string]string{
		"caller": hexOf(seller), "collection": hexOf(artAddr), "approved": hexOf(marketplace.VaultAddress), "tokenId": "1",
	})
	require.Equal(t, http.StatusOK, status, "%+v", res.Error)

	status, res = call(t, h, testToken, "market_newOffer", map[string]string{
		"caller": hexOf(seller), "contract": hexOf(artAddr), "assetId": "1", "quantity": "1", "price": "100",
	})
	require.Equal(t, http.StatusOK, status, "%+v", res.Error)
	var offer offerJSON
	require.NoError(t, json.Unmarshal(res.Result, &offer))
	require.Equal(t, uint64(0), offer.ID)
	require.Equal(t, "active", offer.Status)
	require.False(t, offer.Sold)

	status, res = call(t, h, testToken, "market_buy", map[string]interface{}{
		"caller": hexOf(buyer), "offerId": 0, "amount": "99",
	})
	require.Equal(t, http.StatusPaymentRequired, status)
	require.Equal(t, codePayment, res.Error.Code)

	status, res = call(t, h, testToken, "market_buy", map[string]interface{}{
		"caller": hexOf(buyer), "offerId": 0, "amount": "100",
	})
	require.Equal(t, http.StatusOK, status, "%+v", res.Error)
	require.NoError(t, json.Unmarshal(res.Result, &offer))
	require.Equal(t, "sold", offer.Status)
	require.Equal(t, hexOf(buyer), offer.Buyer)

	status, res = call(t, h, "", "market_commission", nil)
	require.Equal(t, http.StatusOK, status)
	var commission commissionJSON
	require.NoError(t, json.Unmarshal(res.Result, &commission))
	require.Equal(t, "1", commission.Balance)
	require.Equal(t, hexOf(operator), commission.Operator)

	status, res = call(t, h, testToken, "market_withdrawCommission", map[string]string{"caller": hexOf(seller)})
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, codeForbidden, res.Error.Code)

	status, _ = call(t, h, testToken, "market_withdrawCommission", map[string]string{"caller": hexOf(operator)})
	require.Equal(t, http.StatusOK, status)
	acc, err := node.BankAccount(operator)
	require.NoError(t, err)
	require.Equal(t, "1", acc.Balance.String())

	status, res = call(t, h, "", "market_listOffers", map[string]string{"seller": hexOf(seller)})
	require.Equal(t, http.StatusOK, status, "%+v", res.Error)
	var records []offerRecordJSON
	require.NoError(t, json.Unmarshal(res.Result, &records))
	require.Len(t, records, 1)
	require.Equal(t, "sold", records[0].Status)

	status, res = call(t, h, "", "market_offerHistory", map[string]interface{}{"offerId": 0})
	require.Equal(t, http.StatusOK, status)
	var history []offerEventJSON
	require.NoError(t, json.Unmarshal(res.Result, &history))
	require.Len(t, history, 2)
}

func TestQueryErrors(t *testing.T) {
	h, _ := newTestHandler(t, ServerConfig{AuthToken: testToken}, false)

	status, res := call(t, h, "", "market_offer", map[string]interface{}{"offerId": 9})
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeNotFound, res.Error.Code)

	status, res = call(t, h, "", "market_batchGetOffer", map[string]interface{}{"start": 0, "end": 0})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, res.Error.Code)

	status, res = call(t, h, "", "market_nope", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeMethodNotFound, res.Error.Code)

	status, res = call(t, h, "", "market_listOffers", nil)
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, codeServerError, res.Error.Code)

	status, res = call(t, h, testToken, "market_buy", map[string]interface{}{
		"caller": hexOf(buyer), "offerId": 0, "amount": "1" + strings.Repeat("0", 80),
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, res.Error.Code)

	status, res = call(t, h, "", "bank_getBalance", map[string]string{"address": "bogus"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, res.Error.Code)
}

func TestMutationsRequireAuth(t *testing.T) {
	h, _ := newTestHandler(t, ServerConfig{AuthToken: testToken}, false)
	params := map[string]string{"caller": hexOf(operator)}

	status, res := call(t, h, "", "market_withdrawCommission", params)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, codeUnauthorized, res.Error.Code)

	status, _ = call(t, h, "wrong", "market_withdrawCommission", params)
	require.Equal(t, http.StatusUnauthorized, status)

	status, res = call(t, h, testToken, "market_withdrawCommission", params)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, codeConflict, res.Error.Code)
}

func signedToken(t *testing.T, subject [20]byte, expires time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   hexOf(subject),
		Issuer:    "market-tests",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func TestJWTBindsCaller(t *testing.T) {
	h, _ := newTestHandler(t, ServerConfig{JWTSecret: testJWTSecret, JWTIssuer: "market-tests"}, false)
	token := signedToken(t, seller, time.Now().Add(time.Hour))
	params := map[string]string{
		"caller": hexOf(seller), "collection": hexOf(artAddr), "approved": hexOf(marketplace.VaultAddress), "tokenId": "1",
	}

	status, res := call(t, h, token, "collection_approve", params)
	require.Equal(t, http.StatusOK, status, "%+v", res.Error)

	params["caller"] = hexOf(buyer)
	status, res = call(t, h, token, "collection_approve", params)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, codeForbidden, res.Error.Code)

	expired := signedToken(t, seller, time.Now().Add(-time.Hour))
	params["caller"] = hexOf(seller)
	status, _ = call(t, h, expired, "collection_approve", params)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestRateLimit(t *testing.T) {
	h, _ := newTestHandler(t, ServerConfig{RateLimit: rate.Every(time.Hour), Burst: 1}, false)

	status, _ := call(t, h, "", "market_numberOfOffer", nil)
	require.Equal(t, http.StatusOK, status)
	status, res := call(t, h, "", "market_numberOfOffer", nil)
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, codeRateLimited, res.Error.Code)
}

func TestCollectionMethods(t *testing.T) {
	h, _ := newTestHandler(t, ServerConfig{AuthToken: testToken}, false)

	status, res := call(t, h, testToken, "collection_deploy", map[string]string{
		"caller": hexOf(seller), "kind": "multi", "name": "Items",
	})
	require.Equal(t, http.StatusOK, status, "%+v", res.Error)
	var info collectionJSON
	require.NoError(t, json.Unmarshal(res.Result, &info))
	require.Equal(t, "multi", info.Kind)
	require.Equal(t, hexOf(assets.DeriveAddress(seller, 1)), info.Address)

	status, res = call(t, h, testToken, "collection_mint", map[string]string{
		"caller": hexOf(seller), "collection": info.Address, "to": hexOf(buyer), "tokenId": "3", "amount": "40",
	})
	require.Equal(t, http.StatusOK, status, "%+v", res.Error)

	status, res = call(t, h, "", "collection_balanceOf", map[string]string{
		"collection": info.Address, "holder": hexOf(buyer), "tokenId": "3",
	})
	require.Equal(t, http.StatusOK, status)
	var balance string
	require.NoError(t, json.Unmarshal(res.Result, &balance))
	require.Equal(t, "40", balance)

	status, res = call(t, h, testToken, "collection_mint", map[string]string{
		"caller": hexOf(buyer), "collection": info.Address, "to": hexOf(buyer), "tokenId": "3", "amount": "1",
	})
	require.Equal(t, http.StatusForbidden, status)

	status, res = call(t, h, "", "collection_byOwner", map[string]string{"owner": hexOf(seller)})
	require.Equal(t, http.StatusOK, status)
	var owned []string
	require.NoError(t, json.Unmarshal(res.Result, &owned))
	require.Equal(t, []string{hexOf(artAddr), info.Address}, owned)

	status, res = call(t, h, "", "collection_ownerOf", map[string]string{"collection": hexOf(artAddr), "tokenId": "1"})
	require.Equal(t, http.StatusOK, status)
	var owner string
	require.NoError(t, json.Unmarshal(res.Result, &owner))
	require.Equal(t, hexOf(seller), owner)
}

func TestBankMethods(t *testing.T) {
	h, _ := newTestHandler(t, ServerConfig{AuthToken: testToken}, false)

	status, _ := call(t, h, testToken, "bank_credit", map[string]string{
		"caller": hexOf(seller), "address": hexOf(seller), "amount": "5",
	})
	require.Equal(t, http.StatusForbidden, status)

	status, res := call(t, h, testToken, "bank_credit", map[string]string{
		"caller": hexOf(operator), "address": hexOf(seller), "amount": "5",
	})
	require.Equal(t, http.StatusOK, status, "%+v", res.Error)

	status, _ = call(t, h, testToken, "bank_freeze", map[string]string{
		"caller": hexOf(operator), "address": hexOf(seller),
	})
	require.Equal(t, http.StatusOK, status)

	status, res = call(t, h, "", "bank_getBalance", map[string]string{"address": hexOf(seller)})
	require.Equal(t, http.StatusOK, status)
	var acc accountJSON
	require.NoError(t, json.Unmarshal(res.Result, &acc))
	require.Equal(t, "5", acc.Balance)
	require.True(t, acc.Frozen)
}

func TestClientSourceIgnoresForwardedForWhenNotTrusted(t *testing.T) {
	server := NewServer(nil, nil, ServerConfig{TrustedProxies: []string{"10.0.0.1"}})
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "192.0.2.10:1234"
	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	require.Equal(t, "192.0.2.10", server.clientSource(req))
}

func TestClientSourceHonorsForwardedForFromTrustedProxy(t *testing.T) {
	server := NewServer(nil, nil, ServerConfig{TrustedProxies: []string{"10.0.0.1", "172.16.0.0/12"}})
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 198.51.100.7, 172.16.4.2")
	require.Equal(t, "198.51.100.7", server.clientSource(req))

	req.Header.Set("X-Forwarded-For", "not-an-ip")
	require.Equal(t, "10.0.0.1", server.clientSource(req))

	req.Header.Del("X-Forwarded-For")
	require.Equal(t, "10.0.0.1", server.clientSource(req))
}

func TestRateLimitSpoofedForwardedFor(t *testing.T) {
	h, _ := newTestHandler(t, ServerConfig{RateLimit: rate.Every(time.Hour), Burst: 1}, false)
	send := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"market_numberOfOffer"}`))
		req.RemoteAddr = "192.0.2.10:5555"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	require.Equal(t, http.StatusOK, send("198.51.100.1"))
	require.Equal(t, http.StatusTooManyRequests, send("198.51.100.2"))
	require.Equal(t, http.StatusTooManyRequests, send("198.51.100.3"))
}

func TestRateLimitTrustedProxyHonorsForwardedFor(t *testing.T) {
	h, _ := newTestHandler(t, ServerConfig{RateLimit: rate.Every(time.Hour), Burst: 1, TrustedProxies: []string{"10.0.0.0/8"}}, false)
	send := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"market_numberOfOffer"}`))
		req.RemoteAddr = "10.1.2.3:5555"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	require.Equal(t, http.StatusOK, send("198.51.100.1"))
	require.Equal(t, http.StatusOK, send("198.51.100.2"))
	require.Equal(t, http.StatusTooManyRequests, send("198.51.100.1"))
}
