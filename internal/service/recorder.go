package service

// Recorder receives business events for metrics.
type Recorder interface {
	// SubscriptionRequested counts a POST /subscriptions outcome.
	SubscriptionRequested(outcome string)
	SubscriptionConfirmed()
	NewsletterDelivered()
	NewsletterSkipped()
}

// Outcomes passed to Recorder.SubscriptionRequested.
const (
	OutcomeCreated          = "created"
	OutcomeResent           = "resent"
	OutcomeAlreadyConfirmed = "already_confirmed"
	OutcomeInvalid          = "invalid"
	OutcomeFailed           = "failed"
)

type nopRecorder struct{}

func (nopRecorder) SubscriptionRequested(string) {}
func (nopRecorder) SubscriptionConfirmed()       {}
func (nopRecorder) NewsletterDelivered()         {}
func (nopRecorder) NewsletterSkipped()           {}
