// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
)

// Recording file constants for Zoom API
const (
	RecordingStatusCompleted         = "completed"
	RecordingFileTypeMP4             = "MP4"
	RecordingTypeSharedScreenSpeaker = "shared_screen_with_speaker_view"
)

// RecordingFile is one file of a cloud recording.
type RecordingFile struct {
	ID             string    `json:"id"`
	MeetingID      string    `json:"meeting_id"`
	RecordingStart Timestamp `json:"recording_start"`
	RecordingEnd   Timestamp `json:"recording_end"`
	FileType       string    `json:"file_type"`
	FileSize       int64     `json:"file_size"`
	DownloadURL    string    `json:"download_url"`
	Status         string    `json:"status"`
	RecordingType  string    `json:"recording_type"`
}

// MeetingRecordings is the cloud recording of one meeting occurrence.
type MeetingRecordings struct {
	UUID           string          `json:"uuid"`
	ID             int64           `json:"id"`
	Topic          string          `json:"topic"`
	StartTime      Timestamp       `json:"start_time"`
	RecordingFiles []RecordingFile `json:"recording_files"`
}

// GetMeetingRecordings returns the recording of an occurrence, or nil when it has none.
func (c *Client) GetMeetingRecordings(ctx context.Context, meetingUUID string) (*MeetingRecordings, error) {
	ctx = logging.AppendCtx(ctx, slog.String("zoom_operation", "get_meeting_recordings"))

	var recordings MeetingRecordings
	if err := c.getJSON(ctx, "/meetings/"+EncodeMeetingUUID(meetingUUID)+"/recordings", nil, &recordings); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &recordings, nil
}

// BackupCandidate picks the video file worth backing up: the first completed,
// non-empty MP4 of the shared screen with speaker layout, else the first
// completed, non-empty MP4. It returns nil when there is none.
func (r *MeetingRecordings) BackupCandidate() *RecordingFile {
	if r == nil {
		return nil
	}
	var fallback *RecordingFile
	for i := range r.RecordingFiles {
		file := &r.RecordingFiles[i]
		if file.Status != RecordingStatusCompleted || file.FileSize <= 0 || file.FileType != RecordingFileTypeMP4 {
			continue
		}
		if file.RecordingType == RecordingTypeSharedScreenSpeaker {
			return file
		}
		if fallback == nil {
			fallback = file
		}
	}
	return fallback
}
