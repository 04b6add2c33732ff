package domain

import (
	"context"
	"time"
)

// Export is a full dump of a group's data
type Export struct {
	GroupID    int64     `json:"group_id"`
	ExportedAt time.Time `json:"exported_at"`
	Users      []*User   `json:"users"`
	Targets    []*Target `json:"targets"`
	DayOffs    []*DayOff `json:"dayoffs"`
}

// Records counts every exported row
func (e *Export) Records() int {
	return len(e.Users) + len(e.Targets) + len(e.DayOffs)
}

// ExportRepository reads everything stored for a group
type ExportRepository interface {
	Dump(ctx context.Context, groupID int64) (*Export, error)
}
