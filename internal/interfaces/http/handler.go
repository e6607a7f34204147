package httpinterface

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/thresholdvault/vault-daemon/internal/core/application"
	"github.com/thresholdvault/vault-daemon/internal/core/domain"
	"github.com/thresholdvault/vault-daemon/pkg/stats"
)

// maxBodyBytes bounds request bodies, a share payload base64 encoded plus
// some room for the envelope.
const maxBodyBytes = 4 * domain.MaxShareBytes

type handler struct {
	walletSvc   application.WalletService
	guardianSvc application.GuardianService
	metrics     *stats.Metrics
}

// handlerFunc serves one operation and returns the status and body of a
// successful response.
type handlerFunc func(r *http.Request) (int, interface{}, error)

// handle writes the result of fn and records it in metrics.
func (h *handler) handle(op application.Operation, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status, body, err := fn(r)

		outcome := "ok"
		if err != nil {
			outcome = string(errorKind(err))
		}
		if h.metrics != nil {
			h.metrics.Observe(
				string(op), outcome, application.IsAborted(err), time.Since(start),
			)
		}

		if err != nil {
			entry := log.WithError(err).WithFields(log.Fields{
				"operation":  op,
				"request_id": requestIDFromContext(r.Context()),
			})
			if statusOf(errorKind(err)) >= http.StatusInternalServerError {
				entry.Warn("request failed")
			} else {
				entry.Debug("request failed")
			}
			writeError(w, err)
			return
		}
		writeJSON(w, status, body)
	}
}

func (h *handler) generateAddress(r *http.Request) (int, interface{}, error) {
	vaultID, err := vaultIDParam(r)
	if err != nil {
		return 0, nil, err
	}
	var req generateAddressRequest
	if err := decodeBody(r, &req); err != nil {
		return 0, nil, err
	}

	info, err := h.walletSvc.GenerateAddress(r.Context(), vaultID, req.KeyID)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, addressResponse{info}, nil
}

func (h *handler) getAddress(r *http.Request) (int, interface{}, error) {
	vaultID, err := vaultIDParam(r)
	if err != nil {
		return 0, nil, err
	}

	info, err := h.walletSvc.GetAddress(r.Context(), vaultID)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, addressResponse{info}, nil
}

func (h *handler) executeInheritance(r *http.Request) (int, interface{}, error) {
	vaultID, err := vaultIDParam(r)
	if err != nil {
		return 0, nil, err
	}
	var req executeInheritanceRequest
	if err := decodeBody(r, &req); err != nil {
		return 0, nil, err
	}

	receipt, err := h.walletSvc.ExecuteInheritance(
		r.Context(), application.ExecuteInheritanceRequest{
			VaultID:             vaultID,
			KeyReference:        req.KeyID,
			Heirs:               req.Heirs,
			GuardianSubmissions: req.GuardianSubmissions,
		},
	)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, receipt, nil
}

func (h *handler) setVaultManager(r *http.Request) (int, interface{}, error) {
	var req setVaultManagerRequest
	if err := decodeBody(r, &req); err != nil {
		return 0, nil, err
	}

	if err := h.guardianSvc.SetVaultManager(
		r.Context(), PrincipalFromContext(r.Context()),
		domain.Principal(req.Manager),
	); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, req, nil
}

func (h *handler) registerGuardians(r *http.Request) (int, interface{}, error) {
	vaultID, err := vaultIDParam(r)
	if err != nil {
		return 0, nil, err
	}
	var req registerGuardiansRequest
	if err := decodeBody(r, &req); err != nil {
		return 0, nil, err
	}

	caller := PrincipalFromContext(r.Context())
	owner := domain.Principal(req.Owner)
	if owner == "" {
		owner = caller
	}

	records, err := h.guardianSvc.RegisterGuardians(
		r.Context(), caller, application.RegisterGuardiansRequest{
			VaultID:      vaultID,
			Owner:        owner,
			Threshold:    req.Threshold,
			KeyReference: req.KeyID,
			Invites:      req.Guardians,
		},
	)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, guardiansResponse{newGuardianRecords(records)}, nil
}

func (h *handler) acceptInvitation(r *http.Request) (int, interface{}, error) {
	vaultID, err := vaultIDParam(r)
	if err != nil {
		return 0, nil, err
	}
	emailHash, err := emailHashParam(r)
	if err != nil {
		return 0, nil, err
	}

	record, err := h.guardianSvc.AcceptInvitation(
		r.Context(), PrincipalFromContext(r.Context()), vaultID, emailHash,
	)
	if err != nil {
		return 0, nil, err
	}
	res := newGuardianRecord(*record)
	return http.StatusOK, guardianResponse{&res}, nil
}

func (h *handler) submitGuardianShare(r *http.Request) (int, interface{}, error) {
	vaultID, err := vaultIDParam(r)
	if err != nil {
		return 0, nil, err
	}
	emailHash, err := emailHashParam(r)
	if err != nil {
		return 0, nil, err
	}
	var req submitShareRequest
	if err := decodeBody(r, &req); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			return 0, nil, domain.ErrShareTooLarge
		}
		return 0, nil, err
	}

	receipt, err := h.guardianSvc.SubmitGuardianShare(
		r.Context(), PrincipalFromContext(r.Context()),
		application.SubmitShareRequest{
			VaultID:   vaultID,
			EmailHash: emailHash,
			Share:     req.Share,
		},
	)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, receipt, nil
}

func (h *handler) thresholdStatus(r *http.Request) (int, interface{}, error) {
	vaultID, err := vaultIDParam(r)
	if err != nil {
		return 0, nil, err
	}

	status, err := h.guardianSvc.ThresholdStatus(r.Context(), vaultID)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, status, nil
}

func (h *handler) listGuardians(r *http.Request) (int, interface{}, error) {
	vaultID, err := vaultIDParam(r)
	if err != nil {
		return 0, nil, err
	}

	records, err := h.guardianSvc.ListGuardians(r.Context(), vaultID)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, guardiansResponse{newGuardianRecords(records)}, nil
}

func (h *handler) getGuardian(r *http.Request) (int, interface{}, error) {
	vaultID, err := vaultIDParam(r)
	if err != nil {
		return 0, nil, err
	}
	emailHash, err := emailHashParam(r)
	if err != nil {
		return 0, nil, err
	}

	record, err := h.guardianSvc.GetGuardian(r.Context(), vaultID, emailHash)
	if err != nil {
		return 0, nil, err
	}
	if record == nil {
		return http.StatusOK, guardianResponse{}, nil
	}
	res := newGuardianRecord(*record)
	return http.StatusOK, guardianResponse{&res}, nil
}

func (h *handler) listGuardianVaults(r *http.Request) (int, interface{}, error) {
	vaults, err := h.guardianSvc.ListGuardianVaults(
		r.Context(), PrincipalFromContext(r.Context()),
	)
	if err != nil {
		return 0, nil, err
	}
	if vaults == nil {
		vaults = []domain.VaultID{}
	}
	return http.StatusOK, guardianVaultsResponse{vaults}, nil
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func vaultIDParam(r *http.Request) (domain.VaultID, error) {
	param := chi.URLParam(r, "vaultID")
	id, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid vault id %q", errBadRequest, param)
	}
	return domain.VaultID(id), nil
}

func emailHashParam(r *http.Request) ([]byte, error) {
	param := chi.URLParam(r, "emailHash")
	hash, err := hex.DecodeString(param)
	if err != nil || len(hash) != 32 {
		return nil, fmt.Errorf("%w: invalid email hash %q", errBadRequest, param)
	}
	return hash, nil
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("%w: %v", errBodyTooLarge, err)
		}
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return nil
}
