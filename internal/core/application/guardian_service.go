package application

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/thresholdvault/vault-daemon/internal/core/domain"
)

type GuardianService interface {
	// SetVaultManager configures the only identity allowed to register
	// guardian sets. Restricted to controllers.
	SetVaultManager(
		ctx context.Context, caller, manager domain.Principal,
	) error
	RegisterGuardians(
		ctx context.Context, caller domain.Principal, req RegisterGuardiansRequest,
	) ([]domain.GuardianRecord, error)
	AcceptInvitation(
		ctx context.Context, caller domain.Principal,
		vaultID domain.VaultID, emailHash []byte,
	) (*domain.GuardianRecord, error)
	SubmitGuardianShare(
		ctx context.Context, caller domain.Principal, req SubmitShareRequest,
	) (*ShareReceipt, error)
	ThresholdStatus(
		ctx context.Context, vaultID domain.VaultID,
	) (*domain.ThresholdStatus, error)
	ListGuardians(
		ctx context.Context, vaultID domain.VaultID,
	) ([]domain.GuardianRecord, error)
	// GetGuardian returns nil if either the vault or the guardian is unknown.
	GetGuardian(
		ctx context.Context, vaultID domain.VaultID, emailHash []byte,
	) (*domain.GuardianRecord, error)
	// ListGuardianVaults returns the vaults the caller is a bound guardian of.
	ListGuardianVaults(
		ctx context.Context, caller domain.Principal,
	) ([]domain.VaultID, error)
}

type guardianService struct {
	guardianRepository domain.GuardianRepository
	custody            ShareCustody
	controllers        map[domain.Principal]struct{}
	now                func() time.Time
}

func NewGuardianService(
	guardianRepository domain.GuardianRepository,
	custody ShareCustody,
	controllers []string,
	now func() time.Time,
) GuardianService {
	ctrls := make(map[domain.Principal]struct{}, len(controllers))
	for _, c := range controllers {
		if c != "" {
			ctrls[domain.Principal(c)] = struct{}{}
		}
	}
	if now == nil {
		now = time.Now
	}
	return &guardianService{
		guardianRepository: guardianRepository,
		custody:            custody,
		controllers:        ctrls,
		now:                now,
	}
}

func (g *guardianService) SetVaultManager(
	ctx context.Context, caller, manager domain.Principal,
) error {
	if _, ok := g.controllers[caller]; !ok {
		return domain.ErrUnauthorized
	}
	if manager == "" {
		return domain.ErrMissingVaultManager
	}
	if err := g.guardianRepository.SetVaultManager(ctx, manager); err != nil {
		return err
	}

	log.WithField("manager", manager).Info("vault manager updated")
	return nil
}

func (g *guardianService) RegisterGuardians(
	ctx context.Context, caller domain.Principal, req RegisterGuardiansRequest,
) ([]domain.GuardianRecord, error) {
	records, err := g.registerGuardians(ctx, caller, req)
	return records, applyPolicy(OpRegisterGuardians, err)
}

func (g *guardianService) registerGuardians(
	ctx context.Context, caller domain.Principal, req RegisterGuardiansRequest,
) ([]domain.GuardianRecord, error) {
	if caller == "" || caller != req.Owner {
		return nil, domain.ErrUnauthorized
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	manager, ok, err := g.guardianRepository.GetVaultManager(ctx)
	if err != nil {
		return nil, err
	}
	if ok && manager != caller {
		return nil, domain.ErrUnauthorized
	}

	set, err := domain.NewVaultGuardianSet(
		req.VaultID, req.Owner, req.Threshold, req.KeyReference, req.Invites,
		g.now().Unix(),
	)
	if err != nil {
		return nil, err
	}
	if err := g.guardianRepository.AddGuardianSet(ctx, set); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"vault_id":  req.VaultID,
		"guardians": len(set.Guardians),
		"threshold": set.Threshold,
	}).Info("guardians registered")
	return set.Records(), nil
}

func (g *guardianService) AcceptInvitation(
	ctx context.Context, caller domain.Principal,
	vaultID domain.VaultID, emailHash []byte,
) (*domain.GuardianRecord, error) {
	if caller == "" {
		return nil, domain.ErrUnauthorized
	}

	var record domain.GuardianRecord
	if err := g.guardianRepository.UpdateGuardianSet(
		ctx, vaultID,
		func(s *domain.VaultGuardianSet) (*domain.VaultGuardianSet, error) {
			i, err := s.FindGuardian(emailHash)
			if err != nil {
				return nil, err
			}
			guardian := &s.Guardians[i]
			if err := guardian.Accept(caller, g.now().Unix()); err != nil {
				return nil, err
			}
			if guardian.UpdatedAt > s.UpdatedAt {
				s.UpdatedAt = guardian.UpdatedAt
			}
			record = guardian.Record()
			return s, nil
		},
	); err != nil {
		return nil, err
	}

	log.WithField("vault_id", vaultID).Debug("guardian accepted invitation")
	return &record, nil
}

func (g *guardianService) SubmitGuardianShare(
	ctx context.Context, caller domain.Principal, req SubmitShareRequest,
) (*ShareReceipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	snapshot, err := g.guardianRepository.GetGuardianSet(ctx, req.VaultID)
	if err != nil {
		return nil, err
	}
	i, err := snapshot.FindGuardian(req.EmailHash)
	if err != nil {
		return nil, err
	}
	guardian := snapshot.Guardians[i]
	if err := guardian.CanSubmitShare(caller); err != nil {
		return nil, err
	}

	ciphertext, err := g.custody.EncryptShare(
		ctx, req.VaultID, snapshot.KeyReference, guardian, req.Share,
	)
	if err != nil {
		log.WithError(err).WithField("vault_id", req.VaultID).Warn(
			"failed to encrypt guardian share",
		)
		return nil, err
	}

	now := g.now().Unix()
	receipt := &ShareReceipt{VaultID: req.VaultID, SubmittedAt: now}
	if err := g.guardianRepository.UpdateGuardianSet(
		ctx, req.VaultID,
		func(s *domain.VaultGuardianSet) (*domain.VaultGuardianSet, error) {
			// Everything the ciphertext is bound to must be unchanged.
			if s.KeyReference != snapshot.KeyReference {
				return nil, domain.ErrGuardianStateChanged
			}
			j, err := s.FindGuardian(req.EmailHash)
			if err != nil {
				return nil, err
			}
			current := &s.Guardians[j]
			if current.BoundIdentity != guardian.BoundIdentity {
				return nil, domain.ErrGuardianStateChanged
			}
			if err := current.CommitShare(caller, ciphertext, now); err != nil {
				return nil, err
			}
			s.UpdatedAt = now
			receipt.RemainingRequired = s.RemainingRequired()
			return s, nil
		},
	); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"vault_id":  req.VaultID,
		"remaining": receipt.RemainingRequired,
	}).Info("guardian share submitted")
	return receipt, nil
}

func (g *guardianService) ThresholdStatus(
	ctx context.Context, vaultID domain.VaultID,
) (*domain.ThresholdStatus, error) {
	set, err := g.guardianRepository.GetGuardianSet(ctx, vaultID)
	if err != nil {
		return nil, applyPolicy(OpThresholdStatus, err)
	}
	status := set.Status()
	return &status, nil
}

func (g *guardianService) ListGuardians(
	ctx context.Context, vaultID domain.VaultID,
) ([]domain.GuardianRecord, error) {
	set, err := g.guardianRepository.GetGuardianSet(ctx, vaultID)
	if err != nil {
		return nil, applyPolicy(OpListGuardians, err)
	}
	return set.Records(), nil
}

func (g *guardianService) GetGuardian(
	ctx context.Context, vaultID domain.VaultID, emailHash []byte,
) (*domain.GuardianRecord, error) {
	set, err := g.guardianRepository.GetGuardianSet(ctx, vaultID)
	if err != nil {
		if errors.Is(err, domain.ErrVaultNotFound) {
			return nil, nil
		}
		return nil, err
	}
	i, err := set.FindGuardian(emailHash)
	if err != nil {
		return nil, nil
	}
	record := set.Guardians[i].Record()
	return &record, nil
}

func (g *guardianService) ListGuardianVaults(
	ctx context.Context, caller domain.Principal,
) ([]domain.VaultID, error) {
	if caller == "" {
		return []domain.VaultID{}, nil
	}
	return g.guardianRepository.GetVaultsForGuardian(ctx, caller)
}
