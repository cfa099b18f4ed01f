package types

// Log action names attached to request contexts.
const (
	ActionLogin           = "login"
	ActionLogout          = "logout"
	ActionRestoreSession  = "restore_session"
	ActionRenewCredential = "renew_credential"
	ActionAuthorizedCall  = "authorized_call"

	ActionRequestBooking = "request_booking"
	ActionCancelBooking  = "cancel_booking"
	ActionStartRide      = "start_ride"
	ActionEndRide        = "end_ride"
	ActionSubmitReview   = "submit_review"

	ActionStreamConnect   = "stream_connect"
	ActionStreamReconnect = "stream_reconnect"
)
