package poll

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hafbjorn109/wiperino/internal/adapter/memory"
	"github.com/hafbjorn109/wiperino/internal/adapter/metrics"
	"github.com/hafbjorn109/wiperino/internal/domain"
	apperrors "github.com/hafbjorn109/wiperino/internal/platform/errors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTTL = 24 * time.Hour

type fixture struct {
	svc     *Service
	store   *memory.Store
	clock   *clockwork.FakeClock
	metrics *metrics.PollMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClock()
	store := memory.NewStore(clock)
	m := metrics.NewPollMetrics(prometheus.NewRegistry())
	return &fixture{
		svc:     NewService(store, m, testTTL, "https://wiperino.example/"),
		store:   store,
		clock:   clock,
		metrics: m,
	}
}

func (f *fixture) session(t *testing.T) string {
	t.Helper()
	created, err := f.svc.CreateSession(context.Background())
	require.NoError(t, err)
	return created.SessionID
}

func (f *fixture) question(t *testing.T, sessionID, text string, answers ...string) *domain.Question {
	t.Helper()
	q, err := f.svc.AddQuestion(context.Background(), sessionID, text, answers)
	require.NoError(t, err)
	return q
}

func TestCreateSession_TokensResolveToSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)
	assert.Len(t, created.SessionID, sessionIDLength)

	for _, token := range []string{created.Tokens.Moderator, created.Tokens.Viewer, created.Tokens.Overlay} {
		got, err := f.store.Get(ctx, domain.TokenKey(token))
		require.NoError(t, err)
		assert.Equal(t, created.SessionID, got)
	}

	assert.True(t, strings.HasPrefix(created.Tokens.Moderator, created.SessionID+domain.ModeratorMarker))
	assert.NotContains(t, created.Tokens.Viewer, domain.ModeratorMarker)
	assert.NotContains(t, created.Tokens.Overlay, domain.ModeratorMarker)

	assert.Equal(t, "https://wiperino.example/polls/m/"+created.Tokens.Moderator, created.ModeratorURL)
	assert.Equal(t, "https://wiperino.example/polls/v/"+created.Tokens.Viewer, created.ViewerURL)
	assert.Equal(t, "https://wiperino.example/polls/o/"+created.Tokens.Overlay, created.OverlayURL)

	session, err := f.svc.GetSession(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Nil(t, session.PublishedQuestionID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SessionsCreated))
}

func TestCreateSession_ExpiresTogether(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)

	f.clock.Advance(testTTL + time.Second)

	_, err = f.store.Get(ctx, domain.TokenKey(created.Tokens.Viewer))
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	_, err = f.svc.GetSession(ctx, created.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestAddQuestion_StoresWithoutVotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sessionID := f.session(t)

	q := f.question(t, sessionID, "Pick one", "Yes", "No")

	raw, err := f.store.Get(ctx, domain.QuestionKey(q.ID))
	require.NoError(t, err)
	var stored map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, "Pick one", stored["question"])
	assert.NotContains(t, stored, "votes")

	ids, err := f.store.ListRange(ctx, domain.SessionQuestionsKey(sessionID))
	require.NoError(t, err)
	assert.Equal(t, []string{q.ID}, ids)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.QuestionsCreated))
}

func TestAddQuestion_Validation(t *testing.T) {
	f := newFixture(t)
	sessionID := f.session(t)

	tests := []struct {
		name    string
		text    string
		answers []string
		field   string
	}{
		{"empty question", " ", []string{"a", "b"}, "question"},
		{"one answer", "Q", []string{"a"}, "answers"},
		{"duplicate answers", "Q", []string{"a", "a"}, "answers"},
		{"blank answer", "Q", []string{"a", ""}, "answers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddQuestion(context.Background(), sessionID, tt.text, tt.answers)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))
			assert.Equal(t, tt.field, apperrors.AsStructuredError(err).Field)
		})
	}
}

func TestAddQuestion_UnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddQuestion(context.Background(), "missing", "Q", []string{"a", "b"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))
}

func TestVote_FirstVoteInitializesMap(t *testing.T) {
	f := newFixture(t)
	sessionID := f.session(t)
	q := f.question(t, sessionID, "Pick one", "Yes", "No")

	voted, err := f.svc.Vote(context.Background(), sessionID, q.ID, "Yes")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Yes": 1, "No": 0}, voted.Votes)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.VotesTotal.WithLabelValues("applied")))
}

func TestVote_TotalGrowsByOne(t *testing.T) {
	f := newFixture(t)
	sessionID := f.session(t)
	q := f.question(t, sessionID, "Color", "Red", "Green", "Blue")
	ctx := context.Background()

	answers := []string{"Red", "Blue", "Blue", "Green", "Blue"}
	total := 0
	for _, a := range answers {
		before, err := f.svc.GetQuestion(ctx, q.ID)
		require.NoError(t, err)
		prev := before.Votes[a]

		voted, err := f.svc.Vote(ctx, sessionID, q.ID, a)
		require.NoError(t, err)
		total++

		sum := 0
		for _, n := range voted.Votes {
			sum += n
		}
		assert.Equal(t, total, sum)
		assert.Equal(t, prev+1, voted.Votes[a])
	}
	assert.Equal(t, map[string]int{"Red": 1, "Green": 1, "Blue": 3}, mustQuestion(t, f, q.ID).Votes)
}

func TestVote_UnknownAnswerLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	sessionID := f.session(t)
	q := f.question(t, sessionID, "Pick one", "Yes", "No")
	ctx := context.Background()

	_, err := f.svc.Vote(ctx, sessionID, q.ID, "Maybe")
	assert.ErrorIs(t, err, domain.ErrAnswerNotFound)
	assert.Equal(t, "answer not found", apperrors.AsStructuredError(err).Message)
	assert.Nil(t, mustQuestion(t, f, q.ID).Votes)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.VotesTotal.WithLabelValues("rejected")))
}

func TestVote_UnknownQuestion(t *testing.T) {
	f := newFixture(t)
	sessionID := f.session(t)

	_, err := f.svc.Vote(context.Background(), sessionID, "nope", "Yes")
	assert.ErrorIs(t, err, domain.ErrQuestionNotFound)
}

func TestVote_QuestionFromOtherSession(t *testing.T) {
	f := newFixture(t)
	s1, s2 := f.session(t), f.session(t)
	q := f.question(t, s1, "Pick one", "Yes", "No")

	_, err := f.svc.Vote(context.Background(), s2, q.ID, "Yes")
	assert.ErrorIs(t, err, domain.ErrQuestionNotFound)
}

func TestVote_QuestionWithoutSessionIsAccepted(t *testing.T) {
	f := newFixture(t)
	sessionID := f.session(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, domain.QuestionKey("Q1"),
		`{"question":"Pick one","answers":["Yes","No"]}`, time.Hour))

	voted, err := f.svc.Vote(ctx, sessionID, "Q1", "Yes")
	require.NoError(t, err)
	assert.Equal(t, "Q1", voted.ID)
	assert.Equal(t, map[string]int{"Yes": 1, "No": 0}, voted.Votes)
}

func TestPublish_InitializesVotesAndSetsPointer(t *testing.T) {
	f := newFixture(t)
	sessionID := f.session(t)
	q := f.question(t, sessionID, "Pick one", "Yes", "No")
	ctx := context.Background()

	published, err := f.svc.Publish(ctx, sessionID, q.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Yes": 0, "No": 0}, published.Votes)
	assert.Equal(t, map[string]int{"Yes": 0, "No": 0}, mustQuestion(t, f, q.ID).Votes)

	session, err := f.svc.GetSession(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, session.PublishedQuestionID)
	assert.Equal(t, q.ID, *session.PublishedQuestionID)
}

func TestPublish_KeepsExistingVotes(t *testing.T) {
	f := newFixture(t)
	sessionID := f.session(t)
	q := f.question(t, sessionID, "Pick one", "Yes", "No")
	ctx := context.Background()

	_, err := f.svc.Vote(ctx, sessionID, q.ID, "No")
	require.NoError(t, err)

	published, err := f.svc.Publish(ctx, sessionID, q.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Yes": 0, "No": 1}, published.Votes)
}

func TestPublish_Errors(t *testing.T) {
	f := newFixture(t)
	sessionID := f.session(t)
	ctx := context.Background()

	_, err := f.svc.Publish(ctx, sessionID, "missing")
	assert.ErrorIs(t, err, domain.ErrQuestionNotFound)

	require.NoError(t, f.store.Set(ctx, domain.QuestionKey("orphan"), `{"question":"Q","answers":["a","b"]}`, time.Hour))
	_, err = f.svc.Publish(ctx, "gone", "orphan")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestUnpublishThenPublishDifferentQuestion(t *testing.T) {
	f := newFixture(t)
	sessionID := f.session(t)
	q1 := f.question(t, sessionID, "First", "a", "b")
	q2 := f.question(t, sessionID, "Second", "c", "d")
	ctx := context.Background()

	_, err := f.svc.Publish(ctx, sessionID, q1.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Unpublish(ctx, sessionID))

	session, err := f.svc.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Nil(t, session.PublishedQuestionID)

	published, err := f.svc.Publish(ctx, sessionID, q2.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"c": 0, "d": 0}, published.Votes)

	session, err = f.svc.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, q2.ID, *session.PublishedQuestionID)
}

func TestUnpublish_MissingSession(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Unpublish(context.Background(), "gone")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestQuestions_ListOrder(t *testing.T) {
	f := newFixture(t)
	sessionID := f.session(t)
	q1 := f.question(t, sessionID, "First", "a", "b")
	q2 := f.question(t, sessionID, "Second", "c", "d")

	questions, err := f.svc.Questions(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, q1.ID, questions[0].ID)
	assert.Equal(t, q2.ID, questions[1].ID)
}

func TestQuestions_DanglingIDAborts(t *testing.T) {
	f := newFixture(t)
	sessionID := f.session(t)
	f.question(t, sessionID, "First", "a", "b")
	ctx := context.Background()
	require.NoError(t, f.store.ListAppend(ctx, domain.SessionQuestionsKey(sessionID), "ghost", time.Hour))

	_, err := f.svc.Questions(ctx, sessionID)
	assert.ErrorIs(t, err, domain.ErrQuestionNotFound)
}

func TestDeleteQuestion(t *testing.T) {
	f := newFixture(t)
	sessionID := f.session(t)
	q1 := f.question(t, sessionID, "First", "a", "b")
	q2 := f.question(t, sessionID, "Second", "c", "d")
	ctx := context.Background()

	_, err := f.svc.Publish(ctx, sessionID, q1.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteQuestion(ctx, sessionID, q1.ID))

	_, err = f.svc.GetQuestion(ctx, q1.ID)
	assert.ErrorIs(t, err, domain.ErrQuestionNotFound)

	questions, err := f.svc.Questions(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, q2.ID, questions[0].ID)

	session, err := f.svc.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Nil(t, session.PublishedQuestionID)

	err = f.svc.DeleteQuestion(ctx, sessionID, q1.ID)
	assert.ErrorIs(t, err, domain.ErrQuestionNotFound)
}

func mustQuestion(t *testing.T, f *fixture, id string) *domain.Question {
	t.Helper()
	q, err := f.svc.GetQuestion(context.Background(), id)
	require.NoError(t, err)
	return q
}
