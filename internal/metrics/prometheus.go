// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the gamification service.
var (
	// Counters.
	XPAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xp_awarded_total",
			Help: "Total XP points awarded",
		},
		[]string{"reason"},
	)

	XPAwardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xp_awards_total",
			Help: "Total number of XP award operations",
		},
		[]string{"reason", "status"},
	)

	LevelUpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "level_ups_total",
			Help: "Total number of level-ups",
		},
		[]string{"level"},
	)

	CheckInsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "check_ins_total",
			Help: "Total number of daily check-ins",
		},
	)

	BadgesAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_awarded_total",
			Help: "Total number of badges awarded",
		},
		[]string{"badge_name"},
	)

	MissionsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missions_completed_total",
			Help: "Total number of missions completed",
		},
		[]string{"mission", "category"},
	)

	LeaderboardCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_cache_total",
			Help: "Leaderboard cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	// Gauges.
	ActiveBadgeHolders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_badge_holders",
			Help: "Current number of users holding each badge",
		},
		[]string{"badge_name"},
	)

	// Histograms.
	AwardDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xp_award_duration_seconds",
			Help:    "Time taken to process an XP award end to end",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		},
	)

	// Scheduler metrics.
	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_jobs_run_total",
			Help: "Total scheduler job executions",
		},
		[]string{"job", "status"},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Time taken to execute a scheduler job",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s to ~128s
		},
		[]string{"job"},
	)

	StreaksResetTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streaks_reset_total",
			Help: "Total streaks reset by the nightly lapse check",
		},
	)
)

// RecordXPAwarded records a successful XP grant.
func RecordXPAwarded(reason string, amount int) {
	XPAwardedTotal.WithLabelValues(reason).Add(float64(amount))
	XPAwardsTotal.WithLabelValues(reason, "success").Inc()
}

// RecordXPAwardFailed records a failed XP award operation.
func RecordXPAwardFailed(reason string) {
	XPAwardsTotal.WithLabelValues(reason, "error").Inc()
}

// RecordLevelUp records a level-up to the given level.
func RecordLevelUp(level string) {
	LevelUpsTotal.WithLabelValues(level).Inc()
}

// RecordCheckIn records a daily check-in.
func RecordCheckIn() {
	CheckInsTotal.Inc()
}

// RecordBadgeAwarded records a badge award event.
func RecordBadgeAwarded(badgeName string) {
	BadgesAwardedTotal.WithLabelValues(badgeName).Inc()
}

// RecordMissionCompleted records a completed mission.
func RecordMissionCompleted(mission, category string) {
	MissionsCompletedTotal.WithLabelValues(mission, category).Inc()
}

// RecordLeaderboardCache records a leaderboard cache hit or miss.
func RecordLeaderboardCache(outcome string) {
	LeaderboardCacheTotal.WithLabelValues(outcome).Inc()
}

// SetActiveBadgeHolders sets the number of holders for a badge.
func SetActiveBadgeHolders(badgeName string, count int) {
	ActiveBadgeHolders.WithLabelValues(badgeName).Set(float64(count))
}

// ObserveAwardDuration observes the duration of an award operation.
func ObserveAwardDuration(seconds float64) {
	AwardDurationSeconds.Observe(seconds)
}

// RecordSchedulerJobRun records a scheduler job execution.
func RecordSchedulerJobRun(job, status string) {
	SchedulerJobsRunTotal.WithLabelValues(job, status).Inc()
}

// ObserveSchedulerJobDuration observes the duration of a scheduler job.
func ObserveSchedulerJobDuration(job string, seconds float64) {
	SchedulerJobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// RecordStreakReset records a streak reset by the lapse check.
func RecordStreakReset() {
	StreaksResetTotal.Inc()
}
