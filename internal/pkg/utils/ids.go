package utils

import (
	"encoding/json"
	"strconv"
	"strings"
)

// IDsToString converts []int64 to a JSON string (safe for DB)
func IDsToString(ids []int64) string {
	if len(ids) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(ids)
	return string(data)
}

// StringToIDs converts a DB string back to []int64
func StringToIDs(s string) []int64 {
	if s == "" || s == "[]" {
		return []int64{}
	}
	var ids []int64
	if err := json.Unmarshal([]byte(s), &ids); err == nil {
		return ids
	}
	// Fallback: treat as comma-separated if invalid JSON
	for _, part := range strings.Split(strings.Trim(s, "[]"), ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// UniqueIDs drops zero and duplicate ids, keeping first-seen order.
func UniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
