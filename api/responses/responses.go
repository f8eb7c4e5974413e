package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/lucidrepo/lucid-backend/pkg/errors"
	"github.com/lucidrepo/lucid-backend/pkg/logger"
	"github.com/lucidrepo/lucid-backend/pkg/types"
)

// WriteSuccess writes data as the 200 JSON body.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, data)
}

// WriteError reports every failure as 400 {"error": message}. Codes that do
// not expose their message fall back to the code's public message.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
		if pkgerrors.MetadataFor(typed.Code()).ExposeMessage {
			logg.WarnErr(ctx, "request.error", err)
		} else {
			logg.Error(ctx, "request.error", err)
		}
	}

	writeJSON(w, http.StatusBadRequest, types.ErrorBody{Error: PublicMessage(typed)})
}

// PublicMessage is the caller-facing text for a typed error.
func PublicMessage(err *pkgerrors.Error) string {
	meta := pkgerrors.MetadataFor(err.Code())
	if meta.ExposeMessage {
		if m := err.Message(); m != "" {
			return m
		}
	}
	return meta.PublicMessage
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
