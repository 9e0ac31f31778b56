package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andyoknen/p2p-bastyon-backend/internal/domain"
	offersvc "github.com/andyoknen/p2p-bastyon-backend/internal/service/offer"
	ordersvc "github.com/andyoknen/p2p-bastyon-backend/internal/service/order"
	"github.com/andyoknen/p2p-bastyon-backend/internal/service/profile"
	"github.com/andyoknen/p2p-bastyon-backend/internal/storage/blob"
	"github.com/andyoknen/p2p-bastyon-backend/internal/storage/memory"
)

type testEnv struct {
	server *Server
	router http.Handler
	repo   domain.OfferRepository
	mock   *profile.MockService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := memory.NewOfferRepository()
	mock := profile.NewMockService()
	blobs, err := blob.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	offers := offersvc.NewService(repo, mock, nil, nil, nil)
	orders := ordersvc.NewService(repo, nil, nil, nil)
	srv := NewServer(offers, orders, mock, blobs, stubNode{}, blobs.Dir(), nil, nil)

	return &testEnv{server: srv, router: srv.Router(), repo: repo, mock: mock}
}

type stubNode struct{}

func (stubNode) GetNodeInfo(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"version":"0.22"}`), nil
}

func signed(req *http.Request, address string) *http.Request {
	sig, _ := json.Marshal(domain.Signature{Address: address, Signature: "sig"})
	req.Header.Set("Signature", string(sig))
	return req
}

func offerForm(min, max, margin string) url.Values {
	form := url.Values{}
	form.Set("minPkoin", min)
	form.Set("maxPkoin", max)
	form.Set("margin", margin)
	form.Set("telegram", "@maker")
	form.Set("transferTime", "15m")
	form.Set("details", `[{"currency":["USD"],"paymentMethod":"bank-transfer","language":"en","instructions":"wire"}]`)
	return form
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createOffer(t *testing.T, address string) domain.Offer {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/add-payment", strings.NewReader(offerForm("10", "100", "2").Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := e.do(t, signed(req, address))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	offer, err := e.repo.GetByAddress(address)
	require.NoError(t, err)
	return offer
}

func TestAuth_MissingOrMalformedSignature(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/add-payment", nil)
	rec := env.do(t, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/add-payment", nil)
	req.Header.Set("Signature", "not-json")
	rec = env.do(t, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "invalid signature", body.Message)
}

func TestUpsertOffer_CreateThenUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.mock.Profile = domain.Profile{Name: "alice", Avatar: "ava"}

	req := httptest.NewRequest(http.MethodPost, "/add-payment", strings.NewReader(offerForm("10", "100", "2").Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(t, signed(req, "addr-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Message string       `json:"message"`
		Data    domain.Offer `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "payment created", created.Message)
	require.Equal(t, "alice", created.Data.UserName)
	require.NotZero(t, created.Data.ID)

	req = httptest.NewRequest(http.MethodPost, "/add-payment", strings.NewReader(offerForm("20", "100", "3").Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = env.do(t, signed(req, "addr-1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated struct {
		Data domain.Offer `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, created.Data.ID, updated.Data.ID)
	require.Equal(t, float64(20), updated.Data.MinPkoin)
}

func TestUpsertOffer_ValidationEnvelope(t *testing.T) {
	env := newTestEnv(t)

	// minPkoin выше maxPkoin
	req := httptest.NewRequest(http.MethodPost, "/add-payment", strings.NewReader(offerForm("200", "100", "2").Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(t, signed(req, "addr-1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "validation error", body.Message)
	require.NotEmpty(t, body.Errors)
	require.Equal(t, "minPkoin", body.Errors[0].Field)
}

func TestUpsertOffer_NonNumericFormField(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/add-payment", strings.NewReader(offerForm("ten", "100", "2").Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(t, signed(req, "addr-1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "minPkoin must be a number")
}

func TestListOffers_CurrencyFilter(t *testing.T) {
	env := newTestEnv(t)
	env.createOffer(t, "addr-1")

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/payments?currency=USD", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []domain.Offer `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/payments?currency=JPY", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Empty(t, body.Data)
}

func TestGetOffer_NotFoundAndBadID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/payments/999", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "payment not found")

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/payments/abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOwnOffer_NullWhenAbsent(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, signed(httptest.NewRequest(http.MethodGet, "/payments/address/me", nil), "addr-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "null", string(body["data"]))
}

func TestAppendOrder_MultipartWithProof(t *testing.T) {
	env := newTestEnv(t)
	offer := env.createOffer(t, "maker-addr")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("unitPrice", "0.5"))
	require.NoError(t, mw.WriteField("fiatPrice", "50"))
	require.NoError(t, mw.WriteField("fiatCurrency", "USD"))
	require.NoError(t, mw.WriteField("paymentMethod", "bank-transfer"))
	require.NoError(t, mw.WriteField("currency", "USD"))
	fw, err := mw.CreateFormFile("paymentProof", "receipt.png")
	require.NoError(t, err)
	_, err = io.WriteString(fw, "png-bytes")
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	url := fmt.Sprintf("/payments/%d/add-order", offer.ID)
	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := env.do(t, signed(req, "taker-addr"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "taker-addr", body.Order.CounterpartyAddress)
	require.Equal(t, domain.OrderStatusPending, body.Order.Status)
	require.Equal(t, offer.ID, body.Order.PaymentID)
	require.Equal(t, "maker-addr", body.Order.MakerAddress)
	require.True(t, strings.HasPrefix(body.Order.PaymentProof, "/uploads/"))
}

func TestAppendOrder_JSONBody(t *testing.T) {
	env := newTestEnv(t)
	offer := env.createOffer(t, "maker-addr")

	payload := `{"unitPrice":0.5,"fiatPrice":50,"fiatCurrency":"USD","paymentMethod":"bank-transfer","currency":"USD"}`
	url := fmt.Sprintf("/payments/%d/add-order", offer.ID)
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(t, signed(req, "taker-addr"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestTransitionStatus_OwnerGate(t *testing.T) {
	env := newTestEnv(t)
	offer := env.createOffer(t, "maker-addr")

	payload := `{"unitPrice":0.5,"fiatPrice":50,"fiatCurrency":"USD","paymentMethod":"bank-transfer","currency":"USD"}`
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/payments/%d/add-order", offer.ID), strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(t, signed(req, "taker-addr"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	statusURL := fmt.Sprintf("/payments/%d/orders/%s/status", offer.ID, created.Order.ID)

	req = httptest.NewRequest(http.MethodPatch, statusURL, strings.NewReader(`{"status":"paid"}`))
	rec = env.do(t, signed(req, "taker-addr"))
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPatch, statusURL, strings.NewReader(`{"status":"paid"}`))
	rec = env.do(t, signed(req, "maker-addr"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var changed orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &changed))
	require.Equal(t, domain.OrderStatusPaid, changed.Order.Status)

	stored, err := env.repo.GetByID(offer.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.CompletedOrders)
}

func TestTransitionStatus_InvalidStatus(t *testing.T) {
	env := newTestEnv(t)
	offer := env.createOffer(t, "maker-addr")

	url := fmt.Sprintf("/payments/%d/orders/any/status", offer.ID)
	req := httptest.NewRequest(http.MethodPatch, url, strings.NewReader(`{"status":"shipped"}`))
	rec := env.do(t, signed(req, "maker-addr"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid order status")
}

func TestListOrders_PaginationDefaultsAndEnvelope(t *testing.T) {
	env := newTestEnv(t)
	offer := env.createOffer(t, "maker-addr")

	payload := `{"unitPrice":0.5,"fiatPrice":50,"fiatCurrency":"USD","paymentMethod":"bank-transfer","currency":"USD"}`
	for i := 0; i < 12; i++ {
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/payments/%d/add-order", offer.ID), strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rec := env.do(t, signed(req, fmt.Sprintf("taker-%d", i)))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/payments/%d/orders", offer.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body ordersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Orders, 10)
	require.Equal(t, 1, body.Pagination.Page)
	require.Equal(t, 10, body.Pagination.Limit)
	require.Equal(t, 12, body.Pagination.TotalOrders)
	require.Equal(t, 2, body.Pagination.TotalPages)
	// Первая страница — самые свежие ордера.
	require.Equal(t, "taker-11", body.Orders[0].CounterpartyAddress)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/payments/%d/orders?page=0", offer.ID), nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrder(t *testing.T) {
	env := newTestEnv(t)
	offer := env.createOffer(t, "maker-addr")

	payload := `{"unitPrice":0.5,"fiatPrice":50,"fiatCurrency":"USD","paymentMethod":"bank-transfer","currency":"USD"}`
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/payments/%d/add-order", offer.ID), strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(t, signed(req, "taker-addr"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/payments/%d/orders/%s", offer.ID, created.Order.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/payments/%d/orders/missing", offer.ID), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "order not found")
}

func TestNodeInfo(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/node-info", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"version":"0.22"`)
}

func TestUploads_ServesStoredProof(t *testing.T) {
	env := newTestEnv(t)

	ref, err := env.server.blobs.Store("paymentProof", "receipt.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, ref, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "png-bytes", rec.Body.String())
}
