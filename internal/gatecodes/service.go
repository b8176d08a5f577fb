package gatecodes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/berryevents69/Berry-Events-sub000/pkg/crypto"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
)

// KeyInfo labels the HKDF derivation for gate code keys.
const KeyInfo = "berry/gate-codes/v1"

const maxCodeLength = 64

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sealer interface {
	Encrypt(plaintext string) (crypto.Sealed, error)
	Decrypt(sealed crypto.Sealed) (string, error)
}

// Rehomer moves gate codes from cart items to the order items created from them.
type Rehomer interface {
	RehomeTx(ctx context.Context, tx *gorm.DB, mapping map[uuid.UUID]uuid.UUID) (int, error)
}

// Service stores, reveals and re-homes gate codes.
type Service interface {
	Rehomer
	StoreTx(ctx context.Context, tx *gorm.DB, referenceID uuid.UUID, plaintext, createdBy string) (*models.GateCode, error)
	RemoveTx(ctx context.Context, tx *gorm.DB, referenceID uuid.UUID) error
	Reveal(ctx context.Context, referenceID uuid.UUID, accessor string) (string, error)
	HasActive(ctx context.Context, referenceID uuid.UUID) (bool, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	sealer sealer
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the gate code service.
func NewService(repo Repository, tx txRunner, s sealer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("gate code repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if s == nil {
		return nil, fmt.Errorf("sealer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, sealer: s, logg: logg, now: time.Now}, nil
}

// StoreTx encrypts the code and replaces any active code for the reference.
func (s *service) StoreTx(ctx context.Context, tx *gorm.DB, referenceID uuid.UUID, plaintext, createdBy string) (*models.GateCode, error) {
	code := strings.TrimSpace(plaintext)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gate code is required")
	}
	if len(code) > maxCodeLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gate code is too long")
	}
	if referenceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference id is required")
	}

	sealed, err := s.sealer.Encrypt(code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encrypt gate code")
	}

	repo := s.repo.WithTx(tx)
	if _, err := repo.SoftDelete(ctx, referenceID, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("retire gate code: %w", err)
	}
	row := &models.GateCode{
		ID:          uuid.New(),
		ReferenceID: referenceID,
		Ciphertext:  sealed.Ciphertext,
		IV:          sealed.IV,
		AuthTag:     sealed.AuthTag,
	}
	if createdBy != "" {
		row.CreatedBy = &createdBy
	}
	if err := repo.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("store gate code: %w", err)
	}
	return row, nil
}

func (s *service) RemoveTx(ctx context.Context, tx *gorm.DB, referenceID uuid.UUID) error {
	if _, err := s.repo.WithTx(tx).SoftDelete(ctx, referenceID, s.now().UTC()); err != nil {
		return fmt.Errorf("remove gate code: %w", err)
	}
	return nil
}

// Reveal decrypts the active code and records who read it. The access is
// recorded even when decryption fails.
func (s *service) Reveal(ctx context.Context, referenceID uuid.UUID, accessor string) (string, error) {
	if strings.TrimSpace(accessor) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "accessor is required")
	}

	var row *models.GateCode
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		row, err = repo.FindActive(ctx, referenceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "gate code not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load gate code")
		}
		return repo.MarkAccessed(ctx, row.ID, accessor, s.now().UTC())
	})
	if err != nil {
		return "", err
	}

	plaintext, err := s.sealer.Decrypt(crypto.Sealed{
		Ciphertext: row.Ciphertext,
		IV:         row.IV,
		AuthTag:    row.AuthTag,
	})
	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event":        "data_integrity",
			"gate_code_id": row.ID.String(),
			"reference_id": referenceID.String(),
		})
		s.logg.Error(logCtx, "gate code decryption failed", err)
		return "", pkgerrors.Wrap(pkgerrors.CodeDataIntegrity, err, "gate code could not be decrypted")
	}
	return plaintext, nil
}

func (s *service) HasActive(ctx context.Context, referenceID uuid.UUID) (bool, error) {
	_, err := s.repo.FindActive(ctx, referenceID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// RehomeTx copies each active code from a cart item to its order item, then
// hard-deletes every row keyed by the cart items. mapping is cart item id to
// order item id.
func (s *service) RehomeTx(ctx context.Context, tx *gorm.DB, mapping map[uuid.UUID]uuid.UUID) (int, error) {
	if len(mapping) == 0 {
		return 0, nil
	}
	repo := s.repo.WithTx(tx)

	sources := make([]uuid.UUID, 0, len(mapping))
	for cartItemID := range mapping {
		sources = append(sources, cartItemID)
	}
	active, err := repo.ListActive(ctx, sources)
	if err != nil {
		return 0, fmt.Errorf("load gate codes: %w", err)
	}

	for _, code := range active {
		target := mapping[code.ReferenceID]
		moved := &models.GateCode{
			ID:          uuid.New(),
			ReferenceID: target,
			Ciphertext:  code.Ciphertext,
			IV:          code.IV,
			AuthTag:     code.AuthTag,
			CreatedBy:   code.CreatedBy,
		}
		if err := repo.Create(ctx, moved); err != nil {
			return 0, fmt.Errorf("re-home gate code: %w", err)
		}
	}
	if _, err := repo.HardDelete(ctx, sources); err != nil {
		return 0, fmt.Errorf("delete cart gate codes: %w", err)
	}
	return len(active), nil
}
