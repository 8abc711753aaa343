package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/voledger/internal/apperrors"
	"github.com/SscSPs/voledger/internal/core/domain"
	portssvc "github.com/SscSPs/voledger/internal/core/ports/services"
	"github.com/SscSPs/voledger/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// paymentService turns API requests into atomic ledger blocks.
type paymentService struct {
	BaseService
	ledger *Ledger
}

// NewPaymentService creates the payment service on top of ledger.
func NewPaymentService(ledger *Ledger) portssvc.PaymentSvcFacade {
	return &paymentService{ledger: ledger}
}

var _ portssvc.PaymentSvcFacade = (*paymentService)(nil)

func (s *paymentService) Mint(ctx context.Context, req dto.MintRequest, issuerID uuid.UUID) (*dto.ReceiptResponse, error) {
	owner, err := parseID("owner", req.Owner)
	if err != nil {
		return nil, err
	}
	asset, amount, err := s.resolveAmount(ctx, req.Asset, req.Amount)
	if err != nil {
		return nil, err
	}

	var handle *domain.TransactionHandle
	err = s.ledger.Atomic(ctx, func(tx *TxContext) error {
		if err := tx.Mint(ctx, asset.Code, owner, amount, req.Metadata); err != nil {
			return err
		}
		handle, err = tx.RecordTransaction(ctx, asset.Code, nil, &owner, 0, amount, req.Metadata, idempotencyOptions(req.IdempotencyKey, 0)...)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Value minted",
		slog.String("asset", asset.Code),
		slog.String("owner", owner.String()),
		slog.String("issuer_id", issuerID.String()),
		slog.Uint64("amount", amount))
	resp := dto.ToReceiptResponse(handle, asset)
	return &resp, nil
}

func (s *paymentService) Transfer(ctx context.Context, req dto.TransferRequest, senderID uuid.UUID) (*dto.ReceiptsResponse, error) {
	asset, err := s.ledger.GetAsset(ctx, req.Asset)
	if err != nil {
		return nil, err
	}

	type payment struct {
		to       uuid.UUID
		amount   uint64
		metadata string
	}
	payments := make([]payment, len(req.Payments))
	var total uint64
	for i, p := range req.Payments {
		to, err := parseID("to", p.To)
		if err != nil {
			return nil, err
		}
		amount, err := toInternal(*asset, p.Amount)
		if err != nil {
			return nil, err
		}
		if total > domain.MaxAmount-amount {
			return nil, fmt.Errorf("%w: payments add up to more than %d", apperrors.ErrInvalidAmount, domain.MaxAmount)
		}
		total += amount
		payments[i] = payment{to: to, amount: amount, metadata: p.Metadata}
	}

	handles := make([]*domain.TransactionHandle, len(payments))
	err = s.ledger.Atomic(ctx, func(tx *TxContext) error {
		money, err := tx.Money(ctx, asset.Code, senderID, total)
		if err != nil {
			return err
		}
		for i, p := range payments {
			slice, err := money.Slice(p.amount)
			if err != nil {
				return err
			}
			handles[i], err = slice.TransferTo(p.to, p.metadata, idempotencyOptions(req.IdempotencyKey, i)...)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Transfer committed",
		slog.String("asset", asset.Code),
		slog.String("sender", senderID.String()),
		slog.Int("payments", len(payments)),
		slog.Uint64("total", total))
	resp := &dto.ReceiptsResponse{Receipts: make([]dto.ReceiptResponse, len(handles))}
	for i, h := range handles {
		resp.Receipts[i] = dto.ToReceiptResponse(h, *asset)
	}
	return resp, nil
}

func (s *paymentService) Burn(ctx context.Context, req dto.BurnRequest, ownerID uuid.UUID) (*dto.ReceiptResponse, error) {
	asset, amount, err := s.resolveAmount(ctx, req.Asset, req.Amount)
	if err != nil {
		return nil, err
	}

	var handle *domain.TransactionHandle
	err = s.ledger.Atomic(ctx, func(tx *TxContext) error {
		money, err := tx.Money(ctx, asset.Code, ownerID, amount)
		if err != nil {
			return err
		}
		slice, err := money.Slice(amount)
		if err != nil {
			return err
		}
		handle, err = slice.Burn(req.Metadata, idempotencyOptions(req.IdempotencyKey, 0)...)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Value burned",
		slog.String("asset", asset.Code),
		slog.String("owner", ownerID.String()),
		slog.Uint64("amount", amount))
	resp := dto.ToReceiptResponse(handle, asset)
	return &resp, nil
}

func (s *paymentService) Reserve(ctx context.Context, req dto.ReserveRequest, ownerID uuid.UUID) (*dto.ReceiptResponse, error) {
	authority, err := parseID("authority", req.Authority)
	if err != nil {
		return nil, err
	}
	asset, amount, err := s.resolveAmount(ctx, req.Asset, req.Amount)
	if err != nil {
		return nil, err
	}

	var handle *domain.TransactionHandle
	err = s.ledger.Atomic(ctx, func(tx *TxContext) error {
		if err := tx.Reserve(ctx, asset.Code, ownerID, authority, amount, req.Metadata); err != nil {
			return err
		}
		handle, err = tx.RecordTransaction(ctx, asset.Code, &ownerID, &authority, amount, amount, req.Metadata, idempotencyOptions(req.IdempotencyKey, 0)...)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Value reserved",
		slog.String("asset", asset.Code),
		slog.String("owner", ownerID.String()),
		slog.String("authority", authority.String()),
		slog.Uint64("amount", amount))
	resp := dto.ToReceiptResponse(handle, asset)
	return &resp, nil
}

func (s *paymentService) resolveAmount(ctx context.Context, code string, display decimal.Decimal) (domain.Asset, uint64, error) {
	asset, err := s.ledger.GetAsset(ctx, code)
	if err != nil {
		return domain.Asset{}, 0, err
	}
	amount, err := toInternal(*asset, display)
	if err != nil {
		return domain.Asset{}, 0, err
	}
	return *asset, amount, nil
}

func toInternal(asset domain.Asset, display decimal.Decimal) (uint64, error) {
	amount, err := asset.ToInternal(display)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrInvalidAmount, err)
	}
	if amount == 0 {
		return 0, fmt.Errorf("%w: %s is below the smallest amount of %s", apperrors.ErrInvalidAmount, display, asset.Code)
	}
	return amount, nil
}

// idempotencyOptions derives the key of the i-th row written for one request:
// key, key#1, key#2 and so on.
func idempotencyOptions(key string, i int) []TransactionOption {
	if key == "" {
		return nil
	}
	if i > 0 {
		key = fmt.Sprintf("%s#%d", key, i)
	}
	return []TransactionOption{WithIdempotencyKey(key)}
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a UUID", apperrors.ErrValidation, field)
	}
	return id, nil
}
