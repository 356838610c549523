package service

import (
	"context"
	"log"
	"time"

	"dispatch/internal/domain"
)

// Notifier is the outbound signal port of the engine. Matching, pricing
// and state-machine logic never talk to a transport directly; everything
// operator- or courier-facing goes through this interface.
type Notifier interface {
	// OfferDispatched is sent to the courier-facing channel when an offer
	// is left SENT awaiting courier action.
	OfferDispatched(ctx context.Context, offer *domain.Offer) error

	// JobAssigned is broadcast when a job gains its winning courier.
	JobAssigned(ctx context.Context, job *domain.Job) error

	// OfferCancelled tells a courier their outstanding offer is gone.
	OfferCancelled(ctx context.Context, offer *domain.Offer) error

	// ManualAssignmentRequired is sent to the operations channel when
	// automatic matching is exhausted for a job.
	ManualAssignmentRequired(ctx context.Context, job *domain.Job, reason string, attemptedRadiusKm float64) error
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationOfferDispatched NotificationType = "OFFER_DISPATCHED"
	NotificationJobAssigned     NotificationType = "JOB_ASSIGNED"
	NotificationOfferCancelled  NotificationType = "OFFER_CANCELLED"
	NotificationManualRequired  NotificationType = "MANUAL_ASSIGNMENT_REQUIRED"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string // Courier ID, or "operations" for the ops channel
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// NotificationService is the log-backed Notifier implementation.
type NotificationService struct {
	// In a real system, this would have:
	// - Push notification client (FCM, APNS)
	// - WebSocket connections for courier apps
	// - Operations dashboard channel
}

// Ensure NotificationService implements Notifier.
var _ Notifier = (*NotificationService)(nil)

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// OfferDispatched notifies a courier about a new offer.
func (s *NotificationService) OfferDispatched(ctx context.Context, offer *domain.Offer) error {
	return s.send(ctx, Notification{
		Type:        NotificationOfferDispatched,
		RecipientID: offer.CourierID,
		Title:       "New Delivery Offer",
		Message:     "A delivery offer is waiting for you",
		Data: map[string]interface{}{
			"offer_id":    offer.ID,
			"job_id":      offer.JobID,
			"earnings":    offer.Earnings.Total.String(),
			"distance_km": offer.DistanceKm,
			"expires_at":  offer.ExpiresAt,
			"surge":       offer.SurgeMultiplier,
		},
		CreatedAt: time.Now(),
	})
}

// JobAssigned broadcasts a winning assignment.
func (s *NotificationService) JobAssigned(ctx context.Context, job *domain.Job) error {
	return s.send(ctx, Notification{
		Type:        NotificationJobAssigned,
		RecipientID: job.AssignedCourierID,
		Title:       "Delivery Assigned",
		Message:     "The delivery has been assigned",
		Data: map[string]interface{}{
			"job_id":     job.ID,
			"courier_id": job.AssignedCourierID,
		},
		CreatedAt: time.Now(),
	})
}

// OfferCancelled tells a courier their offer was cancelled.
func (s *NotificationService) OfferCancelled(ctx context.Context, offer *domain.Offer) error {
	return s.send(ctx, Notification{
		Type:        NotificationOfferCancelled,
		RecipientID: offer.CourierID,
		Title:       "Offer Withdrawn",
		Message:     "The delivery offer is no longer available",
		Data: map[string]interface{}{
			"offer_id": offer.ID,
			"job_id":   offer.JobID,
		},
		CreatedAt: time.Now(),
	})
}

// ManualAssignmentRequired signals operations that automatic matching gave
// up on a job.
func (s *NotificationService) ManualAssignmentRequired(ctx context.Context, job *domain.Job, reason string, attemptedRadiusKm float64) error {
	return s.send(ctx, Notification{
		Type:        NotificationManualRequired,
		RecipientID: "operations",
		Title:       "Manual Assignment Required",
		Message:     "Automatic courier matching exhausted",
		Data: map[string]interface{}{
			"job_id":              job.ID,
			"reason":              reason,
			"attempted_radius_km": attemptedRadiusKm,
		},
		CreatedAt: time.Now(),
	})
}

// send delivers a notification (mock implementation).
func (s *NotificationService) send(ctx context.Context, notification Notification) error {
	// In a real implementation, this would fan out to push/socket/ops
	// channels and persist for replay.
	log.Printf("[NOTIFICATION] Type=%s, Recipient=%s, Title=%s, Message=%s",
		notification.Type, notification.RecipientID, notification.Title, notification.Message)

	return nil
}
