package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// maxPathLen keeps stored paths short; anything longer carries no
// analytical value and may be junk from scanners.
const maxPathLen = 120

// Pageview is one logged request. Rows are append-only; there are no
// cookies, no visitor ids and no cross-request linkage.
type Pageview struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	OccurredAt time.Time    `gorm:"column:occurred_at;not null;index"`

	Path     string `gorm:"type:text;not null"`
	Referrer string `gorm:"type:text"`

	// IPPrefix is the anonymized address: v4 without the last octet,
	// v6 collapsed to the first three hextets.
	IPPrefix string `gorm:"column:ip_prefix;type:text"`

	Country  string `gorm:"type:text"`
	Language string `gorm:"type:text"`
	Browser  string `gorm:"type:text"`
	OS       string `gorm:"column:os;type:text"`
	Device   string `gorm:"type:text"`

	Bot bool `gorm:"not null;default:false"`
}

func (Pageview) TableName() string { return "pageviews" }

// TruncatePath clips a request path to the stored maximum.
func TruncatePath(path string) string {
	if len(path) > maxPathLen {
		return path[:maxPathLen]
	}
	return path
}

// Hit is the raw request metadata handed to the recorder.
type Hit struct {
	Path           string
	Referrer       string
	RemoteIP       string
	UserAgent      string
	AcceptLanguage string
	Country        string
	OccurredAt     time.Time
}

// DayCount is one day of pageview volume.
type DayCount struct {
	Day   string `gorm:"column:day"`
	Count int64  `gorm:"column:count"`
}

// BucketCount is one classification bucket and its volume.
type BucketCount struct {
	Bucket string `gorm:"column:bucket"`
	Count  int64  `gorm:"column:count"`
}

// Stats is the aggregate view served to the admin dashboard.
type Stats struct {
	TotalViews int64         `json:"totalViews"`
	BotViews   int64         `json:"botViews"`
	PerDay     []DayCount    `json:"perDay"`
	TopPages   []BucketCount `json:"topPages"`
	Countries  []BucketCount `json:"countries"`
	Languages  []BucketCount `json:"languages"`
	Browsers   []BucketCount `json:"browsers"`
	Systems    []BucketCount `json:"systems"`
	Devices    []BucketCount `json:"devices"`
	Referrers  []BucketCount `json:"referrers"`
}
