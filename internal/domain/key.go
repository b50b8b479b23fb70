package domain

import "strconv"

const HourBucket = 3600

// AnalysisKey = "<mint>-<floor(ts/3600)*3600>"
func AnalysisKey(mint string, timestamp int64) string {
	return mint + "-" + strconv.FormatInt(HourStart(timestamp), 10)
}

func HourStart(timestamp int64) int64 {
	b := timestamp / HourBucket
	if timestamp < 0 && timestamp%HourBucket != 0 {
		b-- // floor for pre-epoch values
	}
	return b * HourBucket
}
