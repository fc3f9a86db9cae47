package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	dh "github.com/fatflowers/donorsync/internal/app/service/donation_handler"
	"github.com/fatflowers/donorsync/pkg/logctx"
	"github.com/fatflowers/donorsync/pkg/response"
)

// @Summary      GiveWP Donation Webhook
// @Description  Receives a GiveWP donation snapshot after a status change. Sync failures are recorded in the sync log, not returned here.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        payload body givewp.DonationPayload true "GiveWP donation snapshot"
// @Success      200  {object}  handlers.RespOutcome
// @Router       /api/v2/donation/webhook/givewp [post]
func ApiGiveWPWebhook(h *dh.DonationHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logctx.FromGin(c, h.Logger)
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		out, err := h.HandlePayload(c.Request.Context(), body)
		if err != nil {
			log.Warnw("webhook_givewp_invalid_payload", "error", err.Error())
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		log.Infow("webhook_givewp_handled", "donation_id", out.DonationID, "ignored", out.Ignored)
		c.JSON(http.StatusOK, response.OKT(out))
	}
}

func RegisterDonationWebhookRoutes(r gin.IRouter, h *dh.DonationHandler) {
	r.POST("/webhook/givewp", ApiGiveWPWebhook(h))
}
