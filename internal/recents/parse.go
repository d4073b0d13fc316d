package recents

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	appLog "recents/internal/log"
	"recents/internal/model"
	"recents/internal/timeconv"
)

// recordList is the envelope of the CDR record endpoint.
type recordList struct {
	Meta struct {
		TotalCount int `json:"total_count"`
	} `json:"meta"`
	Objects []record `json:"objects"`
}

type record struct {
	ID        int64  `json:"id"`
	CallDate  string `json:"call_date"`
	Direction string `json:"direction"`
	SrcNumber string `json:"src_number"`
	DstNumber string `json:"dst_number"`
	CallerID  string `json:"caller_id"`
	// DstCode is the platform's destination code, e.g. a voicemail or queue ID.
	DstCode string `json:"dst_code"`
	// Atime is the answered time in seconds.
	Atime int64 `json:"atime"`
}

// ParseRecords decodes a CDR record list. call_date values are read with
// codec, i.e. in the API's reference timezone. Records that fail to
// decode are logged and skipped; the rest are returned newest first.
func ParseRecords(body []byte, codec timeconv.Codec) ([]model.Call, error) {
	if len(body) == 0 {
		return nil, errors.New("recents: empty CDR body")
	}

	var list recordList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("recents: decode CDR body: %w", err)
	}

	calls := make([]model.Call, 0, len(list.Objects))
	for _, rec := range list.Objects {
		call, err := parseRecord(rec, codec)
		if err != nil {
			// Log and skip this record, but keep parsing others.
			appLog.Error("cdr record skipped", err, "id", rec.ID)
			continue
		}
		calls = append(calls, call)
	}

	SortNewestFirst(calls)
	appLog.Debug("cdr parse completed", "records", len(list.Objects), "calls", len(calls))
	return calls, nil
}

func parseRecord(rec record, codec timeconv.Codec) (model.Call, error) {
	start, err := codec.Parse(rec.CallDate)
	if err != nil {
		return model.Call{}, err
	}

	var dir model.Direction
	switch strings.ToLower(rec.Direction) {
	case "inbound", "incoming", "in":
		dir = model.DirectionInbound
	case "outbound", "outgoing", "out":
		dir = model.DirectionOutbound
	default:
		return model.Call{}, fmt.Errorf("recents: unknown direction %q", rec.Direction)
	}

	if rec.Atime < 0 {
		return model.Call{}, fmt.Errorf("recents: negative atime %d", rec.Atime)
	}

	return model.Call{
		ID:           rec.ID,
		Direction:    dir,
		SourceNumber: rec.SrcNumber,
		DestNumber:   rec.DstNumber,
		CallerName:   rec.CallerID,
		DestCode:     rec.DstCode,
		Start:        start,
		Duration:     time.Duration(rec.Atime) * time.Second,
		Answered:     rec.Atime > 0,
	}, nil
}

// SortNewestFirst orders calls by start time, newest first, ID breaking ties.
func SortNewestFirst(calls []model.Call) {
	sort.SliceStable(calls, func(i, j int) bool {
		if !calls[i].Start.Equal(calls[j].Start) {
			return calls[i].Start.After(calls[j].Start)
		}
		return calls[i].ID > calls[j].ID
	})
}
