// Package integration lists a user's connected integrations and removes them,
// cleaning up the records that depended on them.
//
// Removal runs as a fixed pipeline:
//
//	lookup target -> lookup video credential -> revoke token (best effort) -> delete credential
//	(+ app scoped api keys and webhooks) -> optional booking cleanup
//
// The credential delete and the booking cleanup are separate transactions.
// A failed cleanup leaves the credential deleted.
package integration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"integrations-api/internal/events"
	"integrations-api/internal/model"
	"integrations-api/internal/revoke"
	"integrations-api/internal/store"
)

const (
	// VideoType is the only integration whose token gets revoked on removal.
	VideoType = "zoom_video"
	// AutomationApp credentials own api keys and webhooks tagged with the same app id.
	AutomationApp = "zapier"

	ActionCancel = "cancel"
	ActionRemove = "remove"

	RejectionReason = "Payment provider got removed"
)

var ErrInvalidRequest = errors.New("invalid request")

// CascadeError is returned when booking cleanup fails after the credential
// was already deleted.
type CascadeError struct {
	Action string
	Err    error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("booking cleanup (%s): %v", e.Action, e.Err)
}

func (e *CascadeError) Unwrap() error { return e.Err }

type Store interface {
	CredentialTypes(ctx context.Context, userID string) ([]string, error)
	CredentialByType(ctx context.Context, userID, typ string) (*model.Credential, error)
	CredentialByID(ctx context.Context, userID, id string) (*model.Credential, error)
	DeleteCredential(ctx context.Context, userID, id, cascadeApp string) error
	UnpaidBookingIDsWithPayments(ctx context.Context, userID string) ([]string, error)
	AcceptedBookingIDs(ctx context.Context, userID string) ([]string, error)
	Transaction(ctx context.Context, stmts ...store.Stmt) error
}

type Revoker interface {
	Revoke(ctx context.Context, tok *oauth2.Token) (map[string]any, error)
}

type Options struct {
	// ScopeReferenceCleanup restricts booking reference deletion to the
	// caller's ACCEPTED bookings instead of every ACCEPTED booking.
	ScopeReferenceCleanup bool
}

type Service struct {
	store   Store
	revoker Revoker
	events  events.Publisher
	log     *zap.Logger
	opts    Options
}

func New(st Store, rv Revoker, pub events.Publisher, log *zap.Logger, opts Options) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{store: st, revoker: rv, events: pub, log: log, opts: opts}
}

type RemoveRequest struct {
	ID     string `json:"id"`
	Action string `json:"action,omitempty"`
}

// List returns the integration type of every credential the user holds.
func (s *Service) List(ctx context.Context, userID string) ([]string, error) {
	types, err := s.store.CredentialTypes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	if types == nil {
		types = []string{}
	}
	return types, nil
}

// Remove deletes one credential of the user. A *CascadeError means the
// credential is gone but the requested booking cleanup was not applied.
func (s *Service) Remove(ctx context.Context, userID string, req RemoveRequest) error {
	if req.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRequest)
	}
	log := s.log.With(zap.String("user", userID), zap.String("credential", req.ID))

	// nothing, not even the revocation, happens for a credential the caller does not own
	target, err := s.store.CredentialByID(ctx, userID, req.ID)
	if err != nil {
		return fmt.Errorf("lookup credential: %w", err)
	}

	video, err := s.store.CredentialByType(ctx, userID, VideoType)
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Warn("no video credential to revoke")
	case err != nil:
		return fmt.Errorf("lookup %s credential: %w", VideoType, err)
	default:
		if err := s.revoke(ctx, log, video); err != nil {
			return err
		}
	}

	cascade := ""
	if target.App() == AutomationApp {
		cascade = AutomationApp
	}
	if err := s.store.DeleteCredential(ctx, userID, req.ID, cascade); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	log.Info("credential deleted", zap.String("type", target.Type), zap.String("cascade", cascade))

	if err := s.events.Publish(ctx, events.Event{
		Name:         events.IntegrationRemoved,
		UserID:       userID,
		CredentialID: req.ID,
		Type:         target.Type,
		AppID:        target.App(),
		Action:       req.Action,
	}); err != nil {
		log.Warn("publish integration event", zap.Error(err))
	}

	if req.Action != ActionCancel && req.Action != ActionRemove {
		return nil
	}
	if err := s.cleanupBookings(ctx, userID, req.Action); err != nil {
		log.Error("booking cleanup failed", zap.String("action", req.Action), zap.Error(err))
		return &CascadeError{Action: req.Action, Err: err}
	}
	return nil
}

// revoke only fails the workflow when the provider answer is unreadable.
func (s *Service) revoke(ctx context.Context, log *zap.Logger, c *model.Credential) error {
	tok, err := c.Token()
	if err != nil {
		log.Warn("revoke "+VideoType+" skipped", zap.Error(err))
		return nil
	}
	body, err := s.revoker.Revoke(ctx, tok)
	if errors.Is(err, revoke.ErrMalformed) {
		return err
	}
	if err != nil {
		log.Warn("revoke "+VideoType+" failed", zap.Any("response", body), zap.Error(err))
		return nil
	}
	log.Info("revoke "+VideoType, zap.Any("response", body))
	return nil
}

func (s *Service) cleanupBookings(ctx context.Context, userID, action string) error {
	ids, err := s.store.UnpaidBookingIDsWithPayments(ctx, userID)
	if err != nil {
		return err
	}
	deletePayments := store.DeleteFailedPayments(ids)
	cancelBookings := store.CancelBookings(ids, RejectionReason)

	scope := ""
	if s.opts.ScopeReferenceCleanup {
		scope = userID
	}
	accepted, err := s.store.AcceptedBookingIDs(ctx, scope)
	if err != nil {
		return err
	}
	deleteReferences := store.DeleteBookingReferences(accepted)

	if action == ActionCancel {
		return s.store.Transaction(ctx, deletePayments, cancelBookings, deleteReferences)
	}
	// remove keeps the bookings and their references, it only settles them
	return s.store.Transaction(ctx, deletePayments, store.MarkBookingsPaid(ids))
}
