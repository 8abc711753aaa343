package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/voledger/internal/apperrors"
	"github.com/SscSPs/voledger/internal/core/domain"
	portssvc "github.com/SscSPs/voledger/internal/core/ports/services"
	"github.com/SscSPs/voledger/internal/dto"
	"github.com/SscSPs/voledger/internal/handlers"
	"github.com/SscSPs/voledger/internal/middleware"
	"github.com/SscSPs/voledger/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock AssetService ---
type MockAssetService struct {
	mock.Mock
}

func (m *MockAssetService) CreateAsset(ctx context.Context, req dto.CreateAssetRequest, creatorID uuid.UUID) (*domain.Asset, error) {
	args := m.Called(ctx, req, creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Asset), args.Error(1)
}
func (m *MockAssetService) GetAssetByCode(ctx context.Context, code string) (*domain.Asset, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Asset), args.Error(1)
}
func (m *MockAssetService) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Asset), args.Error(1)
}

// Ensure mock implements the interface
var _ portssvc.AssetSvcFacade = (*MockAssetService)(nil)

// --- Mock PaymentService ---
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Mint(ctx context.Context, req dto.MintRequest, issuerID uuid.UUID) (*dto.ReceiptResponse, error) {
	args := m.Called(ctx, req, issuerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReceiptResponse), args.Error(1)
}
func (m *MockPaymentService) Transfer(ctx context.Context, req dto.TransferRequest, senderID uuid.UUID) (*dto.ReceiptsResponse, error) {
	args := m.Called(ctx, req, senderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReceiptsResponse), args.Error(1)
}
func (m *MockPaymentService) Burn(ctx context.Context, req dto.BurnRequest, ownerID uuid.UUID) (*dto.ReceiptResponse, error) {
	args := m.Called(ctx, req, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReceiptResponse), args.Error(1)
}
func (m *MockPaymentService) Reserve(ctx context.Context, req dto.ReserveRequest, ownerID uuid.UUID) (*dto.ReceiptResponse, error) {
	args := m.Called(ctx, req, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReceiptResponse), args.Error(1)
}

var _ portssvc.PaymentSvcFacade = (*MockPaymentService)(nil)

// --- Mock ReportingService ---
type MockReportingService struct {
	mock.Mock
}

func (m *MockReportingService) GetBalance(ctx context.Context, owner uuid.UUID, assetCode string, requesterID uuid.UUID, privileged bool) (*dto.BalanceResponse, error) {
	args := m.Called(ctx, owner, assetCode, requesterID, privileged)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.BalanceResponse), args.Error(1)
}
func (m *MockReportingService) GetHoldings(ctx context.Context, owner uuid.UUID, requesterID uuid.UUID, privileged bool) (*dto.HoldingsResponse, error) {
	args := m.Called(ctx, owner, requesterID, privileged)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.HoldingsResponse), args.Error(1)
}
func (m *MockReportingService) ListTransactions(ctx context.Context, owner uuid.UUID, params dto.ListTransactionsParams, requesterID uuid.UUID, privileged bool) (*dto.ListTransactionsResponse, error) {
	args := m.Called(ctx, owner, params, requesterID, privileged)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListTransactionsResponse), args.Error(1)
}
func (m *MockReportingService) GetTransaction(ctx context.Context, id uuid.UUID, requesterID uuid.UUID, privileged bool) (*dto.TransactionResponse, error) {
	args := m.Called(ctx, id, requesterID, privileged)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TransactionResponse), args.Error(1)
}

var _ portssvc.ReportingSvcFacade = (*MockReportingService)(nil)

// --- Test Suite ---
type HandlerTestSuite struct {
	suite.Suite
	router    *gin.Engine
	assets    *MockAssetService
	payments  *MockPaymentService
	reporting *MockReportingService
	jwtSecret string
	userID    uuid.UUID
}

// generateTestToken creates a signed JWT for testing. role may be empty.
func (suite *HandlerTestSuite) generateTestToken(userID uuid.UUID, role string) string {
	signed, err := middleware.GenerateToken(userID, role, suite.jwtSecret, "voledger-test", time.Hour)
	if err != nil {
		suite.FailNow("Failed to sign test token", err.Error())
	}
	return signed
}

func (suite *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"
	suite.userID = uuid.New()

	suite.assets = new(MockAssetService)
	suite.payments = new(MockPaymentService)
	suite.reporting = new(MockReportingService)

	cfg := &config.Config{JWTSecret: suite.jwtSecret}
	handlers.RegisterRoutes(suite.router, cfg, &portssvc.ServiceContainer{
		Asset:     suite.assets,
		Payment:   suite.payments,
		Reporting: suite.reporting,
	}, nil)
}

func (suite *HandlerTestSuite) do(method, path string, body any, role string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(suite.userID, role))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// --- Test Cases ---

func (suite *HandlerTestSuite) TestHealth() {
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *HandlerTestSuite) TestMissingToken() {
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/assets", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlerTestSuite) TestCreateAsset_RequiresIssuer() {
	w := suite.do(http.MethodPost, "/api/v1/assets", dto.CreateAssetRequest{Code: "USD", Unit: 10_000, Decimals: 2}, "")
	suite.Equal(http.StatusForbidden, w.Code)
	suite.assets.AssertNotCalled(suite.T(), "CreateAsset")
}

func (suite *HandlerTestSuite) TestCreateAsset_Success() {
	req := dto.CreateAssetRequest{Code: "USD", Unit: 10_000, Decimals: 2}
	asset := domain.Fiat("USD")
	suite.assets.On("CreateAsset", mock.Anything, req, suite.userID).Return(&asset, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/assets", req, middleware.RoleIssuer)

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.AssetResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(asset.ID.String(), resp.AssetID)
	suite.Equal(uint64(10_000), resp.Unit)
	suite.assets.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestCreateAsset_InvalidCode() {
	w := suite.do(http.MethodPost, "/api/v1/assets", dto.CreateAssetRequest{Code: "U$", Unit: 1}, middleware.RoleIssuer)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.assets.AssertNotCalled(suite.T(), "CreateAsset")
}

func (suite *HandlerTestSuite) TestCreateAsset_Conflict() {
	suite.assets.On("CreateAsset", mock.Anything, mock.Anything, suite.userID).
		Return(nil, fmt.Errorf("%w: asset USD is registered with unit 1", apperrors.ErrDuplicate)).Once()

	w := suite.do(http.MethodPost, "/api/v1/assets", dto.CreateAssetRequest{Code: "USD", Unit: 2}, middleware.RoleIssuer)
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *HandlerTestSuite) TestGetAsset_NotFound() {
	suite.assets.On("GetAssetByCode", mock.Anything, "EUR").Return(nil, apperrors.ErrAssetNotFound).Once()

	w := suite.do(http.MethodGet, "/api/v1/assets/EUR", nil, "")
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlerTestSuite) TestMint_RequiresIssuer() {
	w := suite.do(http.MethodPost, "/api/v1/mints", dto.MintRequest{
		Asset: "USD", Owner: uuid.NewString(), Amount: decimal.NewFromInt(1),
	}, "")
	suite.Equal(http.StatusForbidden, w.Code)
	suite.payments.AssertNotCalled(suite.T(), "Mint")
}

func (suite *HandlerTestSuite) TestTransfer_Success() {
	bob := uuid.New()
	receipts := &dto.ReceiptsResponse{Receipts: []dto.ReceiptResponse{{
		TransactionID: uuid.NewString(),
		Asset:         "USD",
		Amount:        decimal.RequireFromString("12.5"),
	}}}
	suite.payments.On("Transfer", mock.Anything,
		mock.MatchedBy(func(req dto.TransferRequest) bool {
			return req.Asset == "USD" && len(req.Payments) == 1 &&
				req.Payments[0].To == bob.String() &&
				req.Payments[0].Amount.Equal(decimal.RequireFromString("12.5"))
		}),
		suite.userID,
	).Return(receipts, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/transfers", gin.H{
		"asset":    "USD",
		"payments": []gin.H{{"to": bob.String(), "amount": "12.5"}},
	}, "")

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.ReceiptsResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().Len(resp.Receipts, 1)
	suite.Equal(receipts.Receipts[0].TransactionID, resp.Receipts[0].TransactionID)
	suite.payments.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestTransfer_NoPayments() {
	w := suite.do(http.MethodPost, "/api/v1/transfers", gin.H{"asset": "USD", "payments": []gin.H{}}, "")
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.payments.AssertNotCalled(suite.T(), "Transfer")
}

func (suite *HandlerTestSuite) TestTransfer_ErrorMapping() {
	existing := uuid.New()
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"insufficient funds", fmt.Errorf("selecting coins: %w", apperrors.ErrInsufficientFunds), http.StatusConflict},
		{"invalid amount", apperrors.ErrInvalidAmount, http.StatusBadRequest},
		{"duplicate key", &apperrors.DuplicateIdempotencyKeyError{TransactionID: existing}, http.StatusConflict},
		{"unknown asset", apperrors.ErrAssetNotFound, http.StatusNotFound},
		{"storage", apperrors.NewStorageError("connection reset", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.payments.On("Transfer", mock.Anything, mock.Anything, suite.userID).Return(nil, tt.err).Once()

			w := suite.do(http.MethodPost, "/api/v1/transfers", gin.H{
				"asset":    "USD",
				"payments": []gin.H{{"to": uuid.NewString(), "amount": "1"}},
			}, "")
			suite.Equal(tt.status, w.Code)
		})
	}

	var body map[string]string
	suite.payments.On("Transfer", mock.Anything, mock.Anything, suite.userID).
		Return(nil, &apperrors.DuplicateIdempotencyKeyError{TransactionID: existing}).Once()
	w := suite.do(http.MethodPost, "/api/v1/transfers", gin.H{
		"asset":    "USD",
		"payments": []gin.H{{"to": uuid.NewString(), "amount": "1"}},
	}, "")
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	suite.Equal(existing.String(), body["transactionID"])
}

func (suite *HandlerTestSuite) TestBalance_PassesPrivilege() {
	owner := uuid.New()
	balance := &dto.BalanceResponse{Owner: owner.String(), Asset: "USD", Available: decimal.NewFromInt(5)}
	suite.reporting.On("GetBalance", mock.Anything, owner, "USD", suite.userID, true).Return(balance, nil).Once()

	w := suite.do(http.MethodGet, fmt.Sprintf("/api/v1/owners/%s/balances/USD", owner), nil, middleware.RoleIssuer)
	suite.Equal(http.StatusOK, w.Code)
	suite.reporting.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestBalance_Forbidden() {
	owner := uuid.New()
	suite.reporting.On("GetBalance", mock.Anything, owner, "USD", suite.userID, false).
		Return(nil, apperrors.ErrForbidden).Once()

	w := suite.do(http.MethodGet, fmt.Sprintf("/api/v1/owners/%s/balances/USD", owner), nil, "")
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *HandlerTestSuite) TestBalance_InvalidOwner() {
	w := suite.do(http.MethodGet, "/api/v1/owners/not-a-uuid/balances/USD", nil, "")
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestListTransactions_Window() {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.reporting.On("ListTransactions", mock.Anything, suite.userID,
		mock.MatchedBy(func(p dto.ListTransactionsParams) bool {
			return p.From.Equal(from) && p.To.IsZero()
		}),
		suite.userID, false,
	).Return(&dto.ListTransactionsResponse{Transactions: []dto.TransactionResponse{}}, nil).Once()

	w := suite.do(http.MethodGet, fmt.Sprintf("/api/v1/owners/%s/transactions?from=2024-01-01T00:00:00Z", suite.userID), nil, "")
	suite.Equal(http.StatusOK, w.Code)
	suite.reporting.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestListTransactions_BadDate() {
	w := suite.do(http.MethodGet, fmt.Sprintf("/api/v1/owners/%s/transactions?from=yesterday", suite.userID), nil, "")
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.reporting.AssertNotCalled(suite.T(), "ListTransactions")
}

func (suite *HandlerTestSuite) TestGetTransaction_NotFound() {
	id := uuid.New()
	suite.reporting.On("GetTransaction", mock.Anything, id, suite.userID, false).
		Return(nil, apperrors.ErrTransactionNotFound).Once()

	w := suite.do(http.MethodGet, "/api/v1/transactions/"+id.String(), nil, "")
	suite.Equal(http.StatusNotFound, w.Code)
}

// --- Run Test Suite ---
func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
