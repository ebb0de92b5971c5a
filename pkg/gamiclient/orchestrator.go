package gamiclient

import (
	"context"
	"sync"

	"github.com/nightpulse/gamification/pkg/logger"
)

// LevelInfo describes a level reached through an award.
type LevelInfo struct {
	Level int    `json:"level"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
}

// AwardOutcome reports which steps of an award succeeded. The award itself
// and the follow-up refreshes are independently fault-isolated; a refresh
// failure never undoes a granted award.
type AwardOutcome struct {
	XPAwarded         int
	LevelUp           *LevelInfo
	ProgressRefreshed bool
	BadgesRefreshed   bool
}

// Engine coordinates the progress store, notification queue and API client
// for one user session. All methods are safe for concurrent use; concurrent
// awards race on the snapshot and the last refresh wins, which is acceptable
// because the server stays the source of truth.
type Engine struct {
	client        *Client
	store         *ProgressStore
	notifications *NotificationQueue
	log           *logger.Logger

	mu     sync.Mutex
	userID uint
	badges []Badge
}

// NewEngine creates a gamification engine around a client.
func NewEngine(client *Client, store *ProgressStore, notifications *NotificationQueue, log *logger.Logger) *Engine {
	return &Engine{
		client:        client,
		store:         store,
		notifications: notifications,
		log:           log,
	}
}

// Notifications exposes the queue for display consumers.
func (e *Engine) Notifications() *NotificationQueue {
	return e.notifications
}

// Progress returns the last synced snapshot, nil before the first sync.
func (e *Engine) Progress() *Progress {
	return e.store.Get()
}

// Badges returns the cached badge list.
func (e *Engine) Badges() []Badge {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Badge, len(e.badges))
	copy(out, e.badges)
	return out
}

// StartSession binds the engine to a logged-in user and primes the progress
// snapshot and badge cache. Refresh failures are logged; the session starts
// regardless and fills in on the next successful sync.
func (e *Engine) StartSession(ctx context.Context, userID uint) {
	e.mu.Lock()
	e.userID = userID
	e.mu.Unlock()

	if _, err := e.refreshProgress(ctx, e.store.Epoch()); err != nil {
		e.log.Warn().Err(err).Msg("Initial progress sync failed")
	}
	if !e.refreshBadges(ctx) {
		e.log.Warn().Msg("Initial badge sync failed")
	}
}

// EndSession clears the user binding and wipes session state. In-flight
// refreshes started before the logout are dropped by the store's epoch guard.
func (e *Engine) EndSession() {
	e.mu.Lock()
	e.userID = 0
	e.badges = nil
	e.mu.Unlock()

	e.store.Clear()
}

func (e *Engine) currentUser() uint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userID
}

// AwardXP grants XP and drives the follow-up UI state: on server success it
// enqueues an XP notification, refreshes the snapshot once (reusing that
// fetch for the level comparison), enqueues a level-up notification iff the
// level strictly increased, and refreshes badges. Each follow-up step fails
// independently without affecting the others. Without a logged-in user the
// call is a silent no-op.
func (e *Engine) AwardXP(ctx context.Context, amount int, reason, entityType, entityID string) AwardOutcome {
	if e.currentUser() == 0 {
		return AwardOutcome{}
	}

	epoch := e.store.Epoch()
	previous := e.store.Get()

	resp, err := e.client.AwardXP(ctx, amount, reason, entityType, entityID)
	if err != nil {
		// No notification on server failure
		e.log.Error().Err(err).Str("reason", reason).Msg("XP award request failed")
		return AwardOutcome{}
	}

	outcome := AwardOutcome{XPAwarded: resp.XPAwarded}
	if resp.XPAwarded > 0 {
		e.notifications.AddXP(resp.XPAwarded, reason)
	}

	fresh, err := e.refreshProgress(ctx, epoch)
	if err != nil {
		e.log.Warn().Err(err).Msg("Progress refresh after award failed")
	} else {
		outcome.ProgressRefreshed = true
		if previous != nil && fresh.CurrentLevel > previous.CurrentLevel {
			e.notifications.AddLevelUp(fresh.CurrentLevel, fresh.LevelName, fresh.LevelIcon)
			outcome.LevelUp = &LevelInfo{
				Level: fresh.CurrentLevel,
				Name:  fresh.LevelName,
				Icon:  fresh.LevelIcon,
			}
		}
	}

	outcome.BadgesRefreshed = e.refreshBadges(ctx)

	return outcome
}

// CheckIn performs a daily check-in; any XP the server grants flows through
// the notification path.
func (e *Engine) CheckIn(ctx context.Context, venueID uint) AwardOutcome {
	return e.action(ctx, "check_in", func() (*ActionResponse, error) {
		return e.client.CheckIn(ctx, venueID)
	})
}

// FollowVenue follows a venue, routing awarded XP through notifications.
func (e *Engine) FollowVenue(ctx context.Context, venueID uint) AwardOutcome {
	return e.action(ctx, "venue_followed", func() (*ActionResponse, error) {
		return e.client.Follow(ctx, venueID)
	})
}

// UnfollowVenue unfollows a venue. Never awards XP.
func (e *Engine) UnfollowVenue(ctx context.Context, venueID uint) error {
	if e.currentUser() == 0 {
		return nil
	}
	_, err := e.client.Unfollow(ctx, venueID)
	return err
}

// VoteHelpful votes on a review, routing awarded XP through notifications.
func (e *Engine) VoteHelpful(ctx context.Context, reviewID uint, helpful bool) AwardOutcome {
	return e.action(ctx, "helpful_vote", func() (*ActionResponse, error) {
		return e.client.VoteHelpful(ctx, reviewID, helpful)
	})
}

// action runs an XP-earning call and, when the response carries xpAwarded > 0,
// drives the same notification/refresh path as a direct award.
func (e *Engine) action(ctx context.Context, reason string, call func() (*ActionResponse, error)) AwardOutcome {
	if e.currentUser() == 0 {
		return AwardOutcome{}
	}

	epoch := e.store.Epoch()
	previous := e.store.Get()

	resp, err := call()
	if err != nil {
		e.log.Error().Err(err).Str("action", reason).Msg("Action request failed")
		return AwardOutcome{}
	}

	outcome := AwardOutcome{XPAwarded: resp.XPAwarded}
	if resp.XPAwarded > 0 {
		e.notifications.AddXP(resp.XPAwarded, reason)
	}

	fresh, err := e.refreshProgress(ctx, epoch)
	if err != nil {
		e.log.Warn().Err(err).Str("action", reason).Msg("Progress refresh after action failed")
	} else {
		outcome.ProgressRefreshed = true
		if resp.XPAwarded > 0 && previous != nil && fresh.CurrentLevel > previous.CurrentLevel {
			e.notifications.AddLevelUp(fresh.CurrentLevel, fresh.LevelName, fresh.LevelIcon)
			outcome.LevelUp = &LevelInfo{
				Level: fresh.CurrentLevel,
				Name:  fresh.LevelName,
				Icon:  fresh.LevelIcon,
			}
		}
	}

	if resp.XPAwarded > 0 {
		outcome.BadgesRefreshed = e.refreshBadges(ctx)
	}

	return outcome
}

// refreshProgress fetches the snapshot once and installs it under the given
// epoch. Late responses for a dead session are dropped by the store.
func (e *Engine) refreshProgress(ctx context.Context, epoch uint64) (*Progress, error) {
	fresh, err := e.client.FetchProgress(ctx)
	if err != nil {
		return nil, err
	}
	e.store.Set(epoch, fresh)
	return fresh, nil
}

// refreshBadges refetches the badge cache; returns false on failure.
func (e *Engine) refreshBadges(ctx context.Context) bool {
	badges, err := e.client.FetchBadges(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("Badge refresh failed")
		return false
	}
	e.mu.Lock()
	e.badges = badges
	e.mu.Unlock()
	return true
}
