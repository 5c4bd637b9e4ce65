package utils

import "github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"

// FeedbackStats 计算每个评分所占百分比（向下取整）以及平均分
func FeedbackStats(feedbacks []*domain.ScheduleFeedback) *domain.FeedbackStats {
	stats := &domain.FeedbackStats{
		Percentages: map[int16]int{5: 0, 4: 0, 3: 0, 2: 0, 1: 0},
		Total:       len(feedbacks),
	}
	if len(feedbacks) == 0 {
		return stats
	}

	counts := make(map[int16]int)
	sum := 0
	for _, f := range feedbacks {
		counts[f.Rating]++
		sum += int(f.Rating)
	}

	for rating := range stats.Percentages {
		stats.Percentages[rating] = counts[rating] * 100 / len(feedbacks)
	}
	stats.Average = float64(sum) / float64(len(feedbacks))

	return stats
}
