package protocol

// Tag is the value of the "type" discriminator carried by every frame.
type Tag string

const (
	TagCountUpdate     Tag = "count_update"
	TagNewSegment      Tag = "new_segment"
	TagSegmentFinished Tag = "segment_finished"
	TagRunFinished     Tag = "run_finished"

	TagStartTimer  Tag = "start_timer"
	TagPauseTimer  Tag = "pause_timer"
	TagFinishTimer Tag = "finish_timer"

	TagPublishQuestion   Tag = "publish_question"
	TagUnpublishQuestion Tag = "unpublish_question"
	TagVote              Tag = "vote"
	TagSyncQuestions     Tag = "sync_questions"
	TagDeleteQuestion    Tag = "delete_question"
	TagNewQuestion       Tag = "new_question"

	TagError Tag = "error"
)

// CounterEvent is an inbound event legal in a counter room.
type CounterEvent interface {
	Tag() Tag
	counterEvent()
}

// TimerEvent is an inbound event legal in a timer room.
type TimerEvent interface {
	Tag() Tag
	timerEvent()
}

// PollEvent is an inbound event legal in a poll room.
type PollEvent interface {
	Tag() Tag
	// ModeratorOnly reports whether the event requires the moderator role.
	ModeratorOnly() bool
	pollEvent()
}

type CountUpdate struct {
	SegmentID int64
	Count     int
}

type CounterNewSegment struct {
	SegmentID   int64
	SegmentName string
	Count       int
	IsFinished  bool
}

type SegmentFinished struct {
	SegmentID int64
}

// RunFinished closes a run. It is legal in counter and timer rooms.
type RunFinished struct{}

type StartTimer struct {
	SegmentID   int64
	ElapsedTime float64
	StartedAt   string
}

type PauseTimer struct {
	SegmentID   int64
	ElapsedTime float64
}

type FinishTimer struct {
	SegmentID   int64
	ElapsedTime float64
}

type TimerNewSegment struct {
	SegmentID   int64
	SegmentName string
	ElapsedTime float64
	IsFinished  bool
}

type PublishQuestion struct {
	QuestionID string
}

type UnpublishQuestion struct{}

type Vote struct {
	QuestionID string
	Answer     string
}

type SyncQuestions struct{}

type DeleteQuestion struct {
	QuestionID string
}

func (CountUpdate) Tag() Tag       { return TagCountUpdate }
func (CounterNewSegment) Tag() Tag { return TagNewSegment }
func (SegmentFinished) Tag() Tag   { return TagSegmentFinished }
func (RunFinished) Tag() Tag       { return TagRunFinished }

func (CountUpdate) counterEvent()       {}
func (CounterNewSegment) counterEvent() {}
func (SegmentFinished) counterEvent()   {}
func (RunFinished) counterEvent()       {}

func (StartTimer) Tag() Tag      { return TagStartTimer }
func (PauseTimer) Tag() Tag      { return TagPauseTimer }
func (FinishTimer) Tag() Tag     { return TagFinishTimer }
func (TimerNewSegment) Tag() Tag { return TagNewSegment }

func (StartTimer) timerEvent()      {}
func (PauseTimer) timerEvent()      {}
func (FinishTimer) timerEvent()     {}
func (TimerNewSegment) timerEvent() {}
func (RunFinished) timerEvent()     {}

func (PublishQuestion) Tag() Tag   { return TagPublishQuestion }
func (UnpublishQuestion) Tag() Tag { return TagUnpublishQuestion }
func (Vote) Tag() Tag              { return TagVote }
func (SyncQuestions) Tag() Tag     { return TagSyncQuestions }
func (DeleteQuestion) Tag() Tag    { return TagDeleteQuestion }

func (PublishQuestion) ModeratorOnly() bool   { return true }
func (UnpublishQuestion) ModeratorOnly() bool { return true }
func (Vote) ModeratorOnly() bool              { return false }
func (SyncQuestions) ModeratorOnly() bool     { return true }
func (DeleteQuestion) ModeratorOnly() bool    { return true }

func (PublishQuestion) pollEvent()   {}
func (UnpublishQuestion) pollEvent() {}
func (Vote) pollEvent()              {}
func (SyncQuestions) pollEvent()     {}
func (DeleteQuestion) pollEvent()    {}
