// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campusride/internal/modules/identity"
	"campusride/internal/modules/ride"
	"campusride/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

// acceptedResponse acknowledges a ride write. The resulting state reaches the
// client through the stream.
type acceptedResponse struct {
	RideID types.ID `json:"rideId,omitempty"`
}

// isValidID accepts store-generated document ids.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeRideError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ride.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ride.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ride.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ride.ErrActiveRide):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, ride.ErrWriteRejected):
		writeError(c, http.StatusBadGateway, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// writeIdentityError answers with the localized message the client shows.
func writeIdentityError(c *gin.Context, err error) {
	msg := identity.Message(err, requestLang(c))
	switch {
	case errors.Is(err, identity.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, identity.ErrWeakPassword):
		writeError(c, http.StatusBadRequest, msg)
	case errors.Is(err, identity.ErrEmailInUse):
		writeError(c, http.StatusConflict, msg)
	case errors.Is(err, identity.ErrBadCredential):
		writeError(c, http.StatusUnauthorized, msg)
	case errors.Is(err, identity.ErrTooManyAttempts):
		writeError(c, http.StatusTooManyRequests, msg)
	case errors.Is(err, identity.ErrSignInFailed):
		writeError(c, http.StatusForbidden, msg)
	case errors.Is(err, identity.ErrRegisterFailed):
		writeError(c, http.StatusBadGateway, msg)
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// requestLang picks tr or en from Accept-Language.
func requestLang(c *gin.Context) string {
	for _, part := range strings.Split(c.GetHeader("Accept-Language"), ",") {
		tag := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		switch {
		case strings.HasPrefix(tag, identity.LangEnglish):
			return identity.LangEnglish
		case strings.HasPrefix(tag, identity.LangTurkish):
			return identity.LangTurkish
		}
	}
	return identity.LangTurkish
}
