package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/donorsync/pkg/response"
)

// Probe reports whether a dependency is usable. A nil error means healthy.
type Probe func(ctx context.Context) error

type ReadinessReport struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}

// @Summary      Health check
// @Description  Returns service status
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /healthz [get]
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "ok"}))
}

// @Summary      Readiness check
// @Description  Probes the ledger database, the GiveWP database and the DonorPerfect configuration.
// @Tags         System
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Failure      503  {object}  handlers.RespOK
// @Router       /readyz [get]
func Readyz(probes map[string]Probe) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := ReadinessReport{Ready: true, Checks: make(map[string]string, len(probes))}
		for name, probe := range probes {
			if err := probe(c.Request.Context()); err != nil {
				report.Ready = false
				report.Checks[name] = err.Error()
				continue
			}
			report.Checks[name] = "ok"
		}
		if !report.Ready {
			c.JSON(http.StatusServiceUnavailable, response.ErrorT(response.APIResponseCodeError, report))
			return
		}
		c.JSON(http.StatusOK, response.OKT(report))
	}
}

func RegisterHealthRoutes(r gin.IRouter, probes map[string]Probe) {
	r.GET("/healthz", Healthz)
	r.GET("/readyz", Readyz(probes))
}
