package model

// QueueStats counts the jobs a queue currently remembers, by status.
type QueueStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}

// QueueSnapshot is a point-in-time copy of the queue. Jobs in it are
// clones and may be read freely.
type QueueSnapshot struct {
	Processing *Job
	Pending    []*Job
	Stats      QueueStats
}

// JobHandle is returned on enqueue.
type JobHandle struct {
	ID       string
	Position int // 0 means the job is next
}

// Count adds one job to the matching status bucket.
func (s *QueueStats) Count(status JobStatus) {
	s.Total++
	switch status {
	case JobStatusPending:
		s.Pending++
	case JobStatusProcessing:
		s.Processing++
	case JobStatusCompleted:
		s.Completed++
	case JobStatusFailed:
		s.Failed++
	case JobStatusCancelled:
		s.Cancelled++
	}
}
