package httpinterface

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/thresholdvault/vault-daemon/internal/core/application"
	"github.com/thresholdvault/vault-daemon/internal/core/domain"
)

// errBadRequest marks failures to parse the request itself.
var errBadRequest = errors.New("bad request")

// errBodyTooLarge marks request bodies exceeding maxBodyBytes.
var errBodyTooLarge = fmt.Errorf("%w: request body too large", errBadRequest)

var statusByKind = map[domain.ErrorKind]int{
	domain.KindNotFound:                 http.StatusNotFound,
	domain.KindAlreadyExists:            http.StatusConflict,
	domain.KindValidation:               http.StatusBadRequest,
	domain.KindUnauthorized:             http.StatusForbidden,
	domain.KindResourceExhausted:        http.StatusRequestEntityTooLarge,
	domain.KindInsufficientFunds:        http.StatusUnprocessableEntity,
	domain.KindNoUtxos:                  http.StatusUnprocessableEntity,
	domain.KindFeeEstimationUnavailable: http.StatusUnprocessableEntity,
	domain.KindUpstreamUnavailable:      http.StatusBadGateway,
	domain.KindCryptoFailure:            http.StatusInternalServerError,
	domain.KindInternal:                 http.StatusInternalServerError,
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Aborted bool   `json:"aborted,omitempty"`
}

// errorKind returns the kind reported to the client for err.
func errorKind(err error) domain.ErrorKind {
	if errors.Is(err, errBadRequest) {
		return domain.KindValidation
	}
	return domain.KindOf(err)
}

func statusOf(kind domain.ErrorKind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	kind := errorKind(err)
	status := statusOf(kind)

	message := err.Error()
	if status == http.StatusInternalServerError && kind == domain.KindInternal {
		message = "internal error"
	}
	writeErrorBody(w, status, errorBody{
		Error:   string(kind),
		Message: message,
		Aborted: application.IsAborted(err),
	})
}

func writeErrorBody(w http.ResponseWriter, status int, body errorBody) {
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}
