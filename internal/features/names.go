package features

var featureNames = []string{
	// Base (8)
	"memoryStrength", "difficultyRating", "timeSinceLastReview", "successRate",
	"averageResponseTime", "totalReviews", "consecutiveCorrect", "timeOfDay",
	// Forgetting curve (5)
	"forgettingCurve", "adjustedDecay", "logTimeDecay", "logMemoryStrength", "decayRate",
	// Interaction (10)
	"difficultyTimeProduct", "difficultyMemoryProduct", "successMemoryProduct",
	"successTimeProduct", "responseTimeDifficultyProduct", "responseTimeMemoryProduct",
	"consecutiveMemoryProduct", "consecutiveDifficultyRatio", "experienceSuccessProduct",
	"experienceDifficultyRatio",
	// Polynomial (9)
	"memoryStrengthSquared", "difficultySquared", "timeSquared", "successRateSquared",
	"memoryStrengthCubed", "sqrtMemoryStrength", "sqrtTotalReviews",
	"inverseMemoryStrength", "inverseDifficulty",
	// Cyclical time (5)
	"timeOfDaySin", "timeOfDayCos", "isMorning", "isAfternoon", "isEvening",
	// Moving average (5)
	"recentSuccessRate", "recentAvgResponseTime", "performanceTrend",
	"difficultyTrend", "velocityTrend",
	// Momentum (4)
	"learningMomentum", "streakStrength", "performanceAcceleration", "masteryLevel",
	// Retention (5)
	"stability", "retrievability", "learningEfficiency", "retentionProbability",
	"optimalIntervalEstimate",
}

// Names returns the 51 feature names in vector order. The returned slice is
// a copy and may be modified by the caller.
func Names() []string {
	return append([]string(nil), featureNames...)
}
