package config

import "time"

// Application constants
const (
	AppName    = "University Admissions Dashboard"
	AppVersion = "1.0.0"

	// Dataset
	DefaultDatasetFile = "university_student_dashboard_data.csv"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Network Timeouts
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second
	WebSocketWriteWait  = 10 * time.Second

	// File Paths (relative to executable)
	DefaultDataDir = "data"
	DefaultLogsDir = "logs"
	DefaultWebDir  = "web"

	// HTTP Headers
	HeaderRequestID = "X-Request-ID"
	HeaderRealIP    = "X-Real-IP"
)
