package types

type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusError   SyncStatus = "error"
	SyncStatusSkipped SyncStatus = "skipped"
	// SyncStatusPreview is returned by dry runs and never persisted.
	SyncStatusPreview SyncStatus = "preview"
	// SyncStatusAlreadySynced is returned when a success row exists; never persisted.
	SyncStatusAlreadySynced SyncStatus = "already_synced"
	// SyncStatusInProgress is returned when another trigger is syncing the same donation; never persisted.
	SyncStatusInProgress SyncStatus = "in_progress"
)

type DonorAction string

const (
	DonorActionMatched DonorAction = "matched"
	DonorActionCreated DonorAction = "created"
)

// Preview donor actions.
const (
	PreviewDonorMatch  = "match"
	PreviewDonorCreate = "create"
)

const (
	SubSolicitOneTime   = "ONETIME"
	SubSolicitRecurring = "RECURRING"
)
