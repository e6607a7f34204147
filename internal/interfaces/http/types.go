package httpinterface

import (
	"encoding/hex"

	"github.com/thresholdvault/vault-daemon/internal/core/domain"
)

type generateAddressRequest struct {
	KeyID string `json:"keyId"`
}

type executeInheritanceRequest struct {
	KeyID               string              `json:"keyId"`
	Heirs               []domain.HeirRecord `json:"heirs"`
	GuardianSubmissions uint64              `json:"guardianSubmissions"`
}

type setVaultManagerRequest struct {
	Manager string `json:"manager"`
}

type registerGuardiansRequest struct {
	// Owner defaults to the caller.
	Owner     string                  `json:"owner"`
	Threshold uint64                  `json:"threshold"`
	KeyID     string                  `json:"keyId"`
	Guardians []domain.GuardianInvite `json:"guardians"`
}

type submitShareRequest struct {
	Share []byte `json:"share"`
}

type guardianRecord struct {
	EmailHash   string                `json:"emailHash"`
	Alias       string                `json:"alias"`
	Status      domain.GuardianStatus `json:"status"`
	PrincipalID domain.Principal      `json:"principalId,omitempty"`
}

func newGuardianRecord(r domain.GuardianRecord) guardianRecord {
	return guardianRecord{
		EmailHash:   hex.EncodeToString(r.EmailHash),
		Alias:       r.Alias,
		Status:      r.Status,
		PrincipalID: r.BoundIdentity,
	}
}

func newGuardianRecords(records []domain.GuardianRecord) []guardianRecord {
	out := make([]guardianRecord, 0, len(records))
	for _, r := range records {
		out = append(out, newGuardianRecord(r))
	}
	return out
}

type guardiansResponse struct {
	Guardians []guardianRecord `json:"guardians"`
}

type guardianResponse struct {
	Guardian *guardianRecord `json:"guardian"`
}

type guardianVaultsResponse struct {
	Vaults []domain.VaultID `json:"vaults"`
}

type addressResponse struct {
	Wallet *domain.AddressInfo `json:"wallet"`
}
