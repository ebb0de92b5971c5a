package badges

import (
	"fmt"

	"github.com/nightpulse/gamification/internal/models"
)

// checkCriteria evaluates badge criteria against a user's progress snapshot.
func checkCriteria(criteria *models.BadgeCriteria, prog *models.UserProgress) (bool, error) {
	value, err := metricValue(criteria.Metric, prog)
	if err != nil {
		return false, err
	}
	return compare(criteria.Operator, criteria.Value, value)
}

// metricValue extracts a named metric from the progress snapshot.
func metricValue(metric string, prog *models.UserProgress) (float64, error) {
	switch metric {
	case "total_xp":
		return float64(prog.TotalXP), nil
	case "monthly_xp":
		return float64(prog.MonthlyXP), nil
	case "current_level":
		return float64(prog.CurrentLevel), nil
	case "current_streak":
		return float64(prog.CurrentStreak), nil
	case "longest_streak":
		return float64(prog.LongestStreak), nil
	case "check_ins":
		return float64(prog.CheckInsTotal), nil
	case "votes_cast":
		return float64(prog.VotesCastTotal), nil
	case "ratings":
		return float64(prog.RatingsTotal), nil
	default:
		return 0, fmt.Errorf("unknown metric: %s", metric)
	}
}

// compare applies the criteria operator to a metric value.
func compare(operator string, threshold, actualValue float64) (bool, error) {
	switch operator {
	case "<":
		return actualValue < threshold, nil
	case "<=":
		return actualValue <= threshold, nil
	case ">":
		return actualValue > threshold, nil
	case ">=":
		return actualValue >= threshold, nil
	case "==":
		return actualValue == threshold, nil
	default:
		return false, fmt.Errorf("unsupported operator: %s", operator)
	}
}
