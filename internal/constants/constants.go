package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	StoreTimeout       = 5 * time.Second
	RequestTimeout     = 30 * time.Second
	NotifyTimeout      = 10 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// document file extension used by the file store
	DocumentExt = ".json"

	PartyKeyPrefix      = "party_"
	UserRecordKeyPrefix = "party_user_"
	WebUserKeyPrefix    = "web_"
	PermissionsKey      = "settings_permissions"

	SchemaVersion = 1
)

const (
	RecentMatchLimit      = 5
	DefaultLeaderboardMax = 10
	MaxLeaderboardLimit   = 100
	LoadConcurrency       = 16
)

const (
	SessionCookieName = "aimdot_session"
	StateCookieName   = "aimdot_oauth_state"
	StateCookieTTL    = 10 * time.Minute
)
