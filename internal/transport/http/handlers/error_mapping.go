package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorCase pairs a service-layer sentinel with the status and message its
// HTTP response carries.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError translates usecase sentinels (duplicate account,
// invalid credentials, flow-phase conflicts, oracle unavailability) into the
// mapped response. An error matching no case gets the fallback status so
// storage and oracle internals never leak through unmapped.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, mapped := range cases {
		if mapped.Err != nil && errors.Is(err, mapped.Err) {
			c.JSON(mapped.Status, NewErrorResponse(c, mapped.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
