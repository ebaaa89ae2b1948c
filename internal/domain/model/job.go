package model

// RunJob is a queued request to execute one test run. DeliveryID is the
// queue-assigned handle used only for acknowledgement; it is never persisted
// as business state. An unacknowledged job remains claimable by any consumer
// after the claiming worker dies.
type RunJob struct {
	RunID      string
	TestID     string
	DeliveryID string
}
