package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/donorsync/internal/app/service/backfill"
	"github.com/fatflowers/donorsync/internal/app/service/diagnostics"
	"github.com/fatflowers/donorsync/internal/app/service/match_report"
	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
	"github.com/fatflowers/donorsync/internal/app/service/statistics"
	"github.com/fatflowers/donorsync/internal/app/service/sync_log"
	"github.com/fatflowers/donorsync/internal/platform/givewp"
	"github.com/fatflowers/donorsync/pkg/logctx"
	"github.com/fatflowers/donorsync/pkg/response"
	"github.com/fatflowers/donorsync/pkg/types"
)

type DonationLoader interface {
	GetDonation(ctx context.Context, id int64) (*types.DonationEvent, error)
}

type DonationSyncer interface {
	SyncDonation(ctx context.Context, ev *types.DonationEvent) *reconcile.Result
}

type BackfillRunner interface {
	Run(ctx context.Context, req backfill.Request) (*backfill.Response, error)
}

type BackfillJob interface {
	Start(batchSize int) (backfill.JobStatus, error)
	Stop() bool
	Status() backfill.JobStatus
}

type MatchReporter interface {
	Generate(ctx context.Context) (*match_report.Report, error)
}

type Diagnostics interface {
	TestConnection(ctx context.Context) (*diagnostics.Connection, error)
	TestCodes(ctx context.Context) (diagnostics.CodeReport, error)
}

type LedgerReader interface {
	ListEntries(ctx context.Context, req *sync_log.ListEntriesRequest) (*sync_log.ListEntriesResponse, error)
}

type StatsReader interface {
	GetSyncStats(ctx context.Context) (*statistics.SyncStats, error)
}

// AdminServices groups what the admin routes depend on.
type AdminServices struct {
	Source      DonationLoader
	Engine      DonationSyncer
	Backfill    BackfillRunner
	Job         BackfillJob
	Report      MatchReporter
	Diagnostics Diagnostics
	Ledger      LedgerReader
	Stats       StatsReader
	Logger      *zap.SugaredLogger
}

type SyncDonationRequest struct {
	DonationID int64 `json:"donation_id"`
}

type BackfillRequest struct {
	BatchSize int `json:"batch_size"`
	Offset    int `json:"offset"`
}

// errorCode maps service errors onto the response envelope.
func errorCode(err error) response.APIResponseCode {
	switch {
	case errors.Is(err, givewp.ErrDonationNotFound),
		errors.Is(err, reconcile.ErrNotConfigured),
		errors.Is(err, givewp.ErrSourceDisabled),
		errors.Is(err, sync_log.ErrInvalidFilter):
		return response.APIResponseCodeBadRequest
	case errors.Is(err, backfill.ErrAlreadyRunning):
		return response.APIResponseCodeConflict
	default:
		return response.APIResponseCodeError
	}
}

// bindOptional accepts an empty body so every field keeps its default.
func bindOptional(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func fail(c *gin.Context, log *zap.SugaredLogger, err error) {
	code := errorCode(err)
	if code == response.APIResponseCodeError {
		logctx.FromGin(c, log).Errorw("admin request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(http.StatusOK, response.ErrorT[any](code, err.Error()))
}

// @Summary      Sync Single Donation (Admin)
// @Description  Loads a donation from GiveWP and reconciles it into DonorPerfect unless it already has a success row.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body SyncDonationRequest true "Donation to sync"
// @Success      200  {object}  handlers.RespSyncResult
// @Router       /api/v1/admin/sync_donation [post]
func ApiSyncDonation(s *AdminServices) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SyncDonationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.DonationID <= 0 {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid donation id"))
			return
		}
		ev, err := s.Source.GetDonation(c.Request.Context(), req.DonationID)
		if err != nil {
			fail(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(s.Engine.SyncDonation(c.Request.Context(), ev)))
	}
}

func apiBackfill(s *AdminServices, dryRun bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BackfillRequest
		if err := bindOptional(c, &req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := s.Backfill.Run(c.Request.Context(), backfill.Request{DryRun: dryRun, BatchSize: req.BatchSize, Offset: req.Offset})
		if err != nil {
			fail(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Preview Backfill (Admin)
// @Description  Dry run over one page of unsynced donations. Nothing is written to either system.
// @Tags         Backfill
// @Accept       json
// @Produce      json
// @Param        request body BackfillRequest true "Page selection; batch_size defaults to 50"
// @Success      200  {object}  handlers.RespBackfill
// @Router       /api/v1/admin/backfill/preview [post]
func ApiBackfillPreview(s *AdminServices) gin.HandlerFunc { return apiBackfill(s, true) }

// @Summary      Run Backfill Page (Admin)
// @Description  Reconciles one page of unsynced donations, pacing the calls to DonorPerfect.
// @Tags         Backfill
// @Accept       json
// @Produce      json
// @Param        request body BackfillRequest true "Page selection; batch_size defaults to the configured run batch"
// @Success      200  {object}  handlers.RespBackfill
// @Router       /api/v1/admin/backfill/run [post]
func ApiBackfillRun(s *AdminServices) gin.HandlerFunc { return apiBackfill(s, false) }

// @Summary      Start Backfill Job (Admin)
// @Description  Starts a background job that runs pages until every unsynced donation was attempted.
// @Tags         Backfill
// @Accept       json
// @Produce      json
// @Param        request body BackfillRequest true "batch_size per page; offset is ignored"
// @Success      200  {object}  handlers.RespJobStatus
// @Router       /api/v1/admin/backfill/start [post]
func ApiBackfillStart(s *AdminServices) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BackfillRequest
		if err := bindOptional(c, &req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		st, err := s.Job.Start(req.BatchSize)
		if err != nil {
			fail(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(st))
	}
}

// @Summary      Stop Backfill Job (Admin)
// @Description  Requests the running job to stop after the donation in flight.
// @Tags         Backfill
// @Produce      json
// @Success      200  {object}  handlers.RespJobStatus
// @Router       /api/v1/admin/backfill/stop [post]
func ApiBackfillStop(s *AdminServices) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.Job.Stop() {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "no backfill job is running"))
			return
		}
		c.JSON(http.StatusOK, response.OKT(s.Job.Status()))
	}
}

// @Summary      Backfill Job Status (Admin)
// @Tags         Backfill
// @Produce      json
// @Success      200  {object}  handlers.RespJobStatus
// @Router       /api/v1/admin/backfill/status [get]
func ApiBackfillStatus(s *AdminServices) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OKT(s.Job.Status()))
	}
}

// @Summary      Donor Match Report (Admin)
// @Description  Shows which GiveWP donors already exist in DonorPerfect by email.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespMatchReport
// @Router       /api/v1/admin/match_report [get]
func ApiMatchReport(s *AdminServices) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := s.Report.Generate(c.Request.Context())
		if err != nil {
			fail(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Test DonorPerfect Connection (Admin)
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespConnection
// @Router       /api/v1/admin/test_connection [get]
func ApiTestConnection(s *AdminServices) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := s.Diagnostics.TestConnection(c.Request.Context())
		if err != nil {
			fail(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Check DonorPerfect Codes (Admin)
// @Description  Checks that the GL, campaign and sub-solicit codes used on gifts exist in DPCODES.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespCodeReport
// @Router       /api/v1/admin/test_codes [get]
func ApiTestCodes(s *AdminServices) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := s.Diagnostics.TestCodes(c.Request.Context())
		if err != nil {
			fail(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List Sync Log (Admin)
// @Description  Retrieves a paginated and filterable list of ledger rows, newest first.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body sync_log.ListEntriesRequest true "Status, filters and pagination"
// @Success      200  {object}  handlers.RespListSyncLog
// @Router       /api/v1/admin/list_sync_log [post]
func ApiListSyncLog(s *AdminServices) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sync_log.ListEntriesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := s.Ledger.ListEntries(c.Request.Context(), &req)
		if err != nil {
			fail(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Sync Statistics (Admin)
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespSyncStats
// @Router       /api/v1/admin/sync_stats [get]
func ApiSyncStats(s *AdminServices) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := s.Stats.GetSyncStats(c.Request.Context())
		if err != nil {
			fail(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAdminRoutes(r gin.IRouter, s *AdminServices) {
	r.POST("/sync_donation", ApiSyncDonation(s))
	r.POST("/backfill/preview", ApiBackfillPreview(s))
	r.POST("/backfill/run", ApiBackfillRun(s))
	r.POST("/backfill/start", ApiBackfillStart(s))
	r.POST("/backfill/stop", ApiBackfillStop(s))
	r.GET("/backfill/status", ApiBackfillStatus(s))
	r.GET("/match_report", ApiMatchReport(s))
	r.GET("/test_connection", ApiTestConnection(s))
	r.GET("/test_codes", ApiTestCodes(s))
	r.POST("/list_sync_log", ApiListSyncLog(s))
	r.GET("/sync_stats", ApiSyncStats(s))
}
