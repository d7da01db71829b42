// Package realtime connects the vote service to other processes and pushes
// display updates to websocket clients.
package realtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ChangeHandler is invoked for every report whose votes changed elsewhere
type ChangeHandler func(ctx context.Context, reportID int64)

// ParseReportID decodes a notification payload holding a report id
func ParseReportID(payload string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid report id %q: %w", payload, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid report id %d", id)
	}
	return id, nil
}
