package cache

import (
	"fmt"
	"strings"
)

const (
	// ProjectsPattern matches every list, detail and stats key.
	ProjectsPattern = "project*"

	statsKey = "projects:stats"
)

// ListKey is deterministic in (page, pageSize, search).
func ListKey(page, pageSize int, search string) string {
	return fmt.Sprintf("projects:page:%d:size:%d:search:%s", page, pageSize, strings.TrimSpace(search))
}

func ProjectKey(id int64) string {
	return fmt.Sprintf("project:%d", id)
}

func StatsKey() string {
	return statsKey
}
