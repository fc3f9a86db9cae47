package handlers

import (
	"github.com/fatflowers/donorsync/internal/app/service/backfill"
	"github.com/fatflowers/donorsync/internal/app/service/diagnostics"
	dh "github.com/fatflowers/donorsync/internal/app/service/donation_handler"
	"github.com/fatflowers/donorsync/internal/app/service/match_report"
	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
	"github.com/fatflowers/donorsync/internal/app/service/statistics"
	"github.com/fatflowers/donorsync/internal/app/service/sync_log"
	"github.com/fatflowers/donorsync/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

type RespSyncResult struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    reconcile.Result         `json:"data"`
}

type RespBackfill struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    backfill.Response        `json:"data"`
}

type RespJobStatus struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    backfill.JobStatus       `json:"data"`
}

type RespMatchReport struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    match_report.Report      `json:"data"`
}

type RespConnection struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    diagnostics.Connection   `json:"data"`
}

type RespCodeReport struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    diagnostics.CodeReport   `json:"data"`
}

// RespListSyncLog wraps ListEntriesResponse in the standard envelope.
type RespListSyncLog struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    sync_log.ListEntriesResponse `json:"data"`
}

type RespSyncStats struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    statistics.SyncStats     `json:"data"`
}

type RespOutcome struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    dh.Outcome               `json:"data"`
}
