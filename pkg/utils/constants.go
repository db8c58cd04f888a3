package utils

const (
	StatusAlive        = "monitor is alive"
	HealthReportFound  = "latest health report"
	PerfReportFound    = "latest performance report"
	ReportFound        = "latest report"
	AlertStatsFetched  = "alert statistics"
	AlertHistoryListed = "alert history"
	RunAccepted        = "run started"
)
