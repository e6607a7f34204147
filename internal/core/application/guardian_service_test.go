package application_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thresholdvault/vault-daemon/internal/core/application"
	"github.com/thresholdvault/vault-daemon/internal/core/domain"
	"github.com/thresholdvault/vault-daemon/internal/infrastructure/oracle/local"
	"github.com/thresholdvault/vault-daemon/internal/infrastructure/storage/db/inmemory"
)

const (
	owner      = domain.Principal("owner")
	controller = domain.Principal("controller")
	alice      = domain.Principal("alice-principal")
	bob        = domain.Principal("bob-principal")
)

var (
	now         = time.Unix(1700000000, 0)
	oracleSeed  = bytes.Repeat([]byte{0x01}, 32)
	aliceEmail  = domain.HashEmail("alice@example.com")
	bobEmail    = domain.HashEmail("bob@example.com")
	carolEmail  = domain.HashEmail("carol@example.com")
	aliceShare  = []byte("alice secret share")
	bobShare    = []byte("bob secret share")
	unknownHash = domain.HashEmail("mallory@example.com")
)

func newTestInvites() []domain.GuardianInvite {
	return []domain.GuardianInvite{
		{Email: "alice@example.com", Alias: "Alice"},
		{Email: " Bob@Example.com ", Alias: "Bob"},
		{Email: "carol@example.com", Alias: "Carol"},
	}
}

func newTestRegisterRequest() application.RegisterGuardiansRequest {
	return application.RegisterGuardiansRequest{
		VaultID:      vaultID,
		Owner:        owner,
		Threshold:    2,
		KeyReference: keyRef,
		Invites:      newTestInvites(),
	}
}

func newTestShareCustody(t *testing.T) application.ShareCustody {
	t.Helper()
	kd, err := local.NewKeyDerivationOracle(oracleSeed)
	require.NoError(t, err)
	return application.NewShareCustody(kd, local.NewRandomnessSource())
}

func newTestGuardianService(
	t *testing.T, custody application.ShareCustody,
) (application.GuardianService, *inmemory.GuardianRepositoryImpl) {
	t.Helper()
	repo := inmemory.NewGuardianRepositoryImpl()
	svc := application.NewGuardianService(
		repo, custody, []string{string(controller)},
		func() time.Time { return now },
	)
	return svc, repo
}

func newRegisteredGuardianService(
	t *testing.T, custody application.ShareCustody,
) (application.GuardianService, *inmemory.GuardianRepositoryImpl) {
	t.Helper()
	svc, repo := newTestGuardianService(t, custody)
	_, err := svc.RegisterGuardians(ctx, owner, newTestRegisterRequest())
	require.NoError(t, err)
	return svc, repo
}

func TestSetVaultManager(t *testing.T) {
	svc, repo := newTestGuardianService(t, nil)

	err := svc.SetVaultManager(ctx, owner, "manager")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	err = svc.SetVaultManager(ctx, controller, "")
	require.ErrorIs(t, err, domain.ErrMissingVaultManager)

	err = svc.SetVaultManager(ctx, controller, "manager")
	require.NoError(t, err)

	manager, ok, err := repo.GetVaultManager(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.Principal("manager"), manager)
}

func TestRegisterGuardians(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		svc, _ := newTestGuardianService(t, nil)

		records, err := svc.RegisterGuardians(ctx, owner, newTestRegisterRequest())
		require.NoError(t, err)
		require.Len(t, records, 3)
		require.Equal(t, bobEmail, records[1].EmailHash)
		require.Equal(t, "Bob", records[1].Alias)
		for _, r := range records {
			require.Equal(t, domain.GuardianStatusInvited, r.Status)
			require.Empty(t, r.BoundIdentity)
		}

		status, err := svc.ThresholdStatus(ctx, vaultID)
		require.NoError(t, err)
		require.Equal(t, &domain.ThresholdStatus{Submitted: 0, ThresholdMet: false}, status)

		// Double registration aborts the call.
		_, err = svc.RegisterGuardians(ctx, owner, newTestRegisterRequest())
		require.ErrorIs(t, err, domain.ErrVaultAlreadyRegistered)
		require.True(t, application.IsAborted(err))
	})

	t.Run("with_manager", func(t *testing.T) {
		svc, _ := newTestGuardianService(t, nil)
		require.NoError(t, svc.SetVaultManager(ctx, controller, owner))

		_, err := svc.RegisterGuardians(ctx, owner, newTestRegisterRequest())
		require.NoError(t, err)

		require.NoError(t, svc.SetVaultManager(ctx, controller, "manager"))
		req := newTestRegisterRequest()
		req.VaultID = vaultID + 1
		_, err = svc.RegisterGuardians(ctx, owner, req)
		require.ErrorIs(t, err, domain.ErrUnauthorized)
		require.True(t, application.IsAborted(err))
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name        string
			caller      domain.Principal
			req         func() application.RegisterGuardiansRequest
			expectedErr error
		}{
			{
				name:        "not_owner",
				caller:      "someone",
				req:         newTestRegisterRequest,
				expectedErr: domain.ErrUnauthorized,
			},
			{
				name:   "anonymous",
				caller: "",
				req: func() application.RegisterGuardiansRequest {
					req := newTestRegisterRequest()
					req.Owner = ""
					return req
				},
				expectedErr: domain.ErrUnauthorized,
			},
			{
				name:   "too_few_guardians",
				caller: owner,
				req: func() application.RegisterGuardiansRequest {
					req := newTestRegisterRequest()
					req.Invites = req.Invites[:2]
					return req
				},
				expectedErr: domain.ErrInvalidGuardianCount,
			},
			{
				name:   "too_many_guardians",
				caller: owner,
				req: func() application.RegisterGuardiansRequest {
					req := newTestRegisterRequest()
					req.Invites = append(req.Invites,
						domain.GuardianInvite{Email: "d@example.com", Alias: "D"},
						domain.GuardianInvite{Email: "e@example.com", Alias: "E"},
						domain.GuardianInvite{Email: "f@example.com", Alias: "F"},
					)
					return req
				},
				expectedErr: domain.ErrInvalidGuardianCount,
			},
			{
				name:   "threshold_too_low",
				caller: owner,
				req: func() application.RegisterGuardiansRequest {
					req := newTestRegisterRequest()
					req.Threshold = 1
					return req
				},
				expectedErr: domain.ErrInvalidThreshold,
			},
			{
				name:   "threshold_too_high",
				caller: owner,
				req: func() application.RegisterGuardiansRequest {
					req := newTestRegisterRequest()
					req.Threshold = 4
					return req
				},
				expectedErr: domain.ErrInvalidThreshold,
			},
			{
				name:   "duplicate_email",
				caller: owner,
				req: func() application.RegisterGuardiansRequest {
					req := newTestRegisterRequest()
					req.Invites[2].Email = "Guardian@Example.com"
					req.Invites[0].Email = "guardian@example.com"
					return req
				},
				expectedErr: domain.ErrDuplicateEmail,
			},
			{
				name:   "missing_alias",
				caller: owner,
				req: func() application.RegisterGuardiansRequest {
					req := newTestRegisterRequest()
					req.Invites[1].Alias = "  "
					return req
				},
				expectedErr: domain.ErrMissingAlias,
			},
			{
				name:   "missing_key_reference",
				caller: owner,
				req: func() application.RegisterGuardiansRequest {
					req := newTestRegisterRequest()
					req.KeyReference = ""
					return req
				},
				expectedErr: domain.ErrMissingKeyReference,
			},
		}

		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				svc, _ := newTestGuardianService(t, nil)

				records, err := svc.RegisterGuardians(ctx, tt.caller, tt.req())
				require.ErrorIs(t, err, tt.expectedErr)
				require.True(t, application.IsAborted(err))
				require.Nil(t, records)

				// Nothing was committed.
				_, err = svc.ListGuardians(ctx, vaultID)
				require.ErrorIs(t, err, domain.ErrVaultNotFound)
			})
		}
	})
}

func TestAcceptInvitation(t *testing.T) {
	svc, _ := newRegisteredGuardianService(t, nil)

	record, err := svc.AcceptInvitation(ctx, alice, vaultID, aliceEmail)
	require.NoError(t, err)
	require.Equal(t, domain.GuardianStatusAccepted, record.Status)
	require.Equal(t, alice, record.BoundIdentity)

	again, err := svc.AcceptInvitation(ctx, alice, vaultID, aliceEmail)
	require.NoError(t, err)
	require.Equal(t, record, again)

	_, err = svc.AcceptInvitation(ctx, bob, vaultID, aliceEmail)
	require.ErrorIs(t, err, domain.ErrPrincipalMismatch)

	_, err = svc.AcceptInvitation(ctx, "", vaultID, bobEmail)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.AcceptInvitation(ctx, bob, vaultID, unknownHash)
	require.ErrorIs(t, err, domain.ErrGuardianNotFound)

	_, err = svc.AcceptInvitation(ctx, bob, vaultID+1, bobEmail)
	require.ErrorIs(t, err, domain.ErrVaultNotFound)

	vaults, err := svc.ListGuardianVaults(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, []domain.VaultID{vaultID}, vaults)

	vaults, err = svc.ListGuardianVaults(ctx, bob)
	require.NoError(t, err)
	require.Empty(t, vaults)

	vaults, err = svc.ListGuardianVaults(ctx, "")
	require.NoError(t, err)
	require.Empty(t, vaults)
}

func TestGuardianThreshold(t *testing.T) {
	custody := newTestShareCustody(t)
	svc, repo := newRegisteredGuardianService(t, custody)

	_, err := svc.AcceptInvitation(ctx, alice, vaultID, aliceEmail)
	require.NoError(t, err)
	receipt, err := svc.SubmitGuardianShare(ctx, alice, application.SubmitShareRequest{
		VaultID: vaultID, EmailHash: aliceEmail, Share: aliceShare,
	})
	require.NoError(t, err)
	require.Equal(t, &application.ShareReceipt{
		VaultID: vaultID, SubmittedAt: now.Unix(), RemainingRequired: 1,
	}, receipt)

	status, err := svc.ThresholdStatus(ctx, vaultID)
	require.NoError(t, err)
	require.Equal(t, uint64(1), status.Submitted)
	require.False(t, status.ThresholdMet)

	_, err = svc.AcceptInvitation(ctx, bob, vaultID, bobEmail)
	require.NoError(t, err)
	receipt, err = svc.SubmitGuardianShare(ctx, bob, application.SubmitShareRequest{
		VaultID: vaultID, EmailHash: bobEmail, Share: bobShare,
	})
	require.NoError(t, err)
	require.Zero(t, receipt.RemainingRequired)

	status, err = svc.ThresholdStatus(ctx, vaultID)
	require.NoError(t, err)
	require.Equal(t, uint64(2), status.Submitted)
	require.True(t, status.ThresholdMet)

	record, err := svc.GetGuardian(ctx, vaultID, aliceEmail)
	require.NoError(t, err)
	require.Equal(t, domain.GuardianStatusShareSubmitted, record.Status)

	records, err := svc.ListGuardians(ctx, vaultID)
	require.NoError(t, err)
	require.Equal(t, domain.GuardianStatusShareSubmitted, records[0].Status)
	require.Equal(t, domain.GuardianStatusShareSubmitted, records[1].Status)
	require.Equal(t, domain.GuardianStatusInvited, records[2].Status)

	// Shares are stored encrypted and only open for their own guardian.
	set, err := repo.GetGuardianSet(ctx, vaultID)
	require.NoError(t, err)
	aliceEntry, bobEntry := set.Guardians[0], set.Guardians[1]
	require.NotContains(t, string(aliceEntry.EncryptedShare), string(aliceShare))

	plaintext, err := custody.DecryptShare(
		ctx, vaultID, keyRef, aliceEntry, aliceEntry.EncryptedShare,
	)
	require.NoError(t, err)
	require.Equal(t, aliceShare, plaintext)

	_, err = custody.DecryptShare(
		ctx, vaultID, keyRef, bobEntry, aliceEntry.EncryptedShare,
	)
	require.ErrorIs(t, err, domain.Kind(domain.KindCryptoFailure))
}

func TestFailingSubmitGuardianShare(t *testing.T) {
	custody := newTestShareCustody(t)
	svc, _ := newRegisteredGuardianService(t, custody)

	_, err := svc.AcceptInvitation(ctx, alice, vaultID, aliceEmail)
	require.NoError(t, err)
	_, err = svc.SubmitGuardianShare(ctx, alice, application.SubmitShareRequest{
		VaultID: vaultID, EmailHash: aliceEmail, Share: aliceShare,
	})
	require.NoError(t, err)

	tests := []struct {
		name        string
		caller      domain.Principal
		req         application.SubmitShareRequest
		expectedErr error
	}{
		{
			name:   "still_invited",
			caller: bob,
			req: application.SubmitShareRequest{
				VaultID: vaultID, EmailHash: bobEmail, Share: bobShare,
			},
			expectedErr: domain.ErrGuardianNotAccepted,
		},
		{
			name:   "already_submitted",
			caller: alice,
			req: application.SubmitShareRequest{
				VaultID: vaultID, EmailHash: aliceEmail, Share: aliceShare,
			},
			expectedErr: domain.ErrShareAlreadySubmitted,
		},
		{
			name:   "other_identity",
			caller: bob,
			req: application.SubmitShareRequest{
				VaultID: vaultID, EmailHash: aliceEmail, Share: bobShare,
			},
			expectedErr: domain.ErrUnauthorized,
		},
		{
			name:   "empty_share",
			caller: alice,
			req: application.SubmitShareRequest{
				VaultID: vaultID, EmailHash: aliceEmail,
			},
			expectedErr: domain.ErrMissingSharePayload,
		},
		{
			name:   "share_too_large",
			caller: alice,
			req: application.SubmitShareRequest{
				VaultID:   vaultID,
				EmailHash: aliceEmail,
				Share:     make([]byte, domain.MaxShareBytes+1),
			},
			expectedErr: domain.ErrShareTooLarge,
		},
		{
			name:   "unknown_guardian",
			caller: alice,
			req: application.SubmitShareRequest{
				VaultID: vaultID, EmailHash: unknownHash, Share: aliceShare,
			},
			expectedErr: domain.ErrGuardianNotFound,
		},
		{
			name:   "unknown_vault",
			caller: alice,
			req: application.SubmitShareRequest{
				VaultID: vaultID + 1, EmailHash: aliceEmail, Share: aliceShare,
			},
			expectedErr: domain.ErrVaultNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			receipt, err := svc.SubmitGuardianShare(ctx, tt.caller, tt.req)
			require.ErrorIs(t, err, tt.expectedErr)
			require.False(t, application.IsAborted(err))
			require.Nil(t, receipt)
		})
	}

	status, err := svc.ThresholdStatus(ctx, vaultID)
	require.NoError(t, err)
	require.Equal(t, uint64(1), status.Submitted)
}

func TestSubmitGuardianShareCommit(t *testing.T) {
	t.Run("encryption_failure", func(t *testing.T) {
		custody := &mockShareCustody{}
		svc, _ := newRegisteredGuardianService(t, custody)
		_, err := svc.AcceptInvitation(ctx, alice, vaultID, aliceEmail)
		require.NoError(t, err)

		custody.On("EncryptShare", vaultID, keyRef, aliceEmail, aliceShare).
			Return(nil, domain.ErrRandomnessUnavailable).Once()
		custody.On("EncryptShare", vaultID, keyRef, aliceEmail, aliceShare).
			Return([]byte("ciphertext"), nil).Once()

		req := application.SubmitShareRequest{
			VaultID: vaultID, EmailHash: aliceEmail, Share: aliceShare,
		}
		_, err = svc.SubmitGuardianShare(ctx, alice, req)
		require.ErrorIs(t, err, domain.ErrRandomnessUnavailable)

		record, err := svc.GetGuardian(ctx, vaultID, aliceEmail)
		require.NoError(t, err)
		require.Equal(t, domain.GuardianStatusAccepted, record.Status)

		// The failed call is retryable.
		receipt, err := svc.SubmitGuardianShare(ctx, alice, req)
		require.NoError(t, err)
		require.Equal(t, uint64(1), receipt.RemainingRequired)
	})

	t.Run("state_changed", func(t *testing.T) {
		custody := &mockShareCustody{}
		svc, repo := newRegisteredGuardianService(t, custody)
		_, err := svc.AcceptInvitation(ctx, alice, vaultID, aliceEmail)
		require.NoError(t, err)

		// Key reference is rotated while the share is being encrypted.
		custody.On("EncryptShare", vaultID, keyRef, aliceEmail, aliceShare).Run(
			func(_ mock.Arguments) {
				err := repo.UpdateGuardianSet(ctx, vaultID,
					func(s *domain.VaultGuardianSet) (*domain.VaultGuardianSet, error) {
						s.KeyReference = "test_key_2"
						return s, nil
					},
				)
				require.NoError(t, err)
			},
		).Return([]byte("ciphertext"), nil)

		_, err = svc.SubmitGuardianShare(ctx, alice, application.SubmitShareRequest{
			VaultID: vaultID, EmailHash: aliceEmail, Share: aliceShare,
		})
		require.ErrorIs(t, err, domain.ErrGuardianStateChanged)

		set, err := repo.GetGuardianSet(ctx, vaultID)
		require.NoError(t, err)
		require.Empty(t, set.Guardians[0].EncryptedShare)
		require.Equal(t, domain.GuardianStatusAccepted, set.Guardians[0].Status)
	})
}

func TestGuardianQueries(t *testing.T) {
	svc, _ := newRegisteredGuardianService(t, nil)

	record, err := svc.GetGuardian(ctx, vaultID, carolEmail)
	require.NoError(t, err)
	require.Equal(t, "Carol", record.Alias)

	record, err = svc.GetGuardian(ctx, vaultID, unknownHash)
	require.NoError(t, err)
	require.Nil(t, record)

	record, err = svc.GetGuardian(ctx, vaultID+1, carolEmail)
	require.NoError(t, err)
	require.Nil(t, record)

	_, err = svc.ThresholdStatus(ctx, vaultID+1)
	require.ErrorIs(t, err, domain.ErrVaultNotFound)
	require.True(t, application.IsAborted(err))

	_, err = svc.ListGuardians(ctx, vaultID+1)
	require.ErrorIs(t, err, domain.ErrVaultNotFound)
	require.True(t, application.IsAborted(err))

	var aborted *application.CallAbortedError
	require.True(t, errors.As(err, &aborted))
	require.Equal(t, application.OpListGuardians, aborted.Operation)
}
