package domain

import "slices"

// ModeratorMarker is the substring that grants the moderator role to a poll
// room-access token.
const ModeratorMarker = "-mod-"

type PollSession struct {
	ID                  string  `json:"-"`
	PublishedQuestionID *string `json:"published_question_id"`
}

// PollTokens are the three room-access tokens minted with a session.
type PollTokens struct {
	Moderator string
	Viewer    string
	Overlay   string
}

type Question struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id,omitempty"`
	Question  string         `json:"question"`
	Answers   []string       `json:"answers"`
	Votes     map[string]int `json:"votes,omitempty"`
}

func (q *Question) HasAnswer(answer string) bool {
	return slices.Contains(q.Answers, answer)
}

// EnsureVotes initializes a zero count for every answer when the vote map
// is absent. Reports whether the map was created.
func (q *Question) EnsureVotes() bool {
	if q.Votes != nil {
		return false
	}
	q.Votes = make(map[string]int, len(q.Answers))
	for _, a := range q.Answers {
		q.Votes[a] = 0
	}
	return true
}

// BelongsTo reports whether the question may be used from the given
// session. Questions stored without a session id are accepted anywhere.
func (q *Question) BelongsTo(sessionID string) bool {
	return q.SessionID == "" || q.SessionID == sessionID
}

// Store keys for poll state. All share the poll session TTL.
func TokenKey(token string) string                { return "poll:token_map:" + token }
func SessionKey(sessionID string) string          { return "poll:session:" + sessionID }
func SessionQuestionsKey(sessionID string) string { return "poll:session:" + sessionID + ":questions" }
func QuestionKey(questionID string) string        { return "poll:question:" + questionID }
