package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"chatseek_go_backend/internal/database"
	"chatseek_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type MockChatStore struct {
	mock.Mock
}

func (m *MockChatStore) GetChatForOwner(ctx context.Context, chatID, userID uuid.UUID) (*models.Chat, error) {
	args := m.Called(ctx, chatID, userID)
	chat, _ := args.Get(0).(*models.Chat)
	return chat, args.Error(1)
}

func (m *MockChatStore) CreateTurn(ctx context.Context, turn *models.Message) error {
	args := m.Called(ctx, turn)
	return args.Error(0)
}

func (m *MockChatStore) UpdateChatFreshness(ctx context.Context, chatID uuid.UUID, ts time.Time) error {
	args := m.Called(ctx, chatID, ts)
	return args.Error(0)
}

func (m *MockChatStore) GetRecentTurns(ctx context.Context, chatID uuid.UUID, limit int) ([]models.Message, error) {
	args := m.Called(ctx, chatID, limit)
	turns, _ := args.Get(0).([]models.Message)
	return turns, args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(topic string, msg interface{}) {
	m.Called(topic, msg)
}

// scriptedGenerator replays fixed fragments and records the requests it got.
type scriptedGenerator struct {
	mu        sync.Mutex
	fragments []Fragment
	requests  []GenerationRequest
	// hold, when set, blocks the producer after the scripted fragments
	// until the caller's context ends.
	hold bool
	// onStream runs synchronously when a request arrives.
	onStream func(req GenerationRequest)
	// started is closed once the first request arrives.
	started chan struct{}
	stopped chan struct{}
}

func newScriptedGenerator(fragments ...Fragment) *scriptedGenerator {
	return &scriptedGenerator{
		fragments: fragments,
		started:   make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

func (g *scriptedGenerator) Stream(ctx context.Context, req GenerationRequest) <-chan Fragment {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	first := len(g.requests) == 1
	g.mu.Unlock()
	if first {
		close(g.started)
	}
	if g.onStream != nil {
		g.onStream(req)
	}

	out := make(chan Fragment)
	go func() {
		defer close(out)
		defer func() {
			if first {
				close(g.stopped)
			}
		}()
		for _, f := range g.fragments {
			if !send(ctx, out, f) {
				return
			}
		}
		if g.hold {
			<-ctx.Done()
		}
	}()
	return out
}

func (g *scriptedGenerator) Requests() []GenerationRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]GenerationRequest(nil), g.requests...)
}

// stepClock returns strictly increasing whole-second timestamps.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDB("sqlite://file:"+uuid.NewString()+"?mode=memory&cache=shared", false)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedUserAndChat(t *testing.T, db *gorm.DB) (*models.User, *models.Chat) {
	t.Helper()
	user := &models.User{
		Email:          uuid.NewString() + "@example.com",
		Username:       "user-" + uuid.NewString()[:8],
		HashedPassword: "x",
		IsActive:       true,
	}
	require.NoError(t, db.Create(user).Error)

	chat := &models.Chat{Title: "Test chat", Model: "llama3", UserID: user.ID}
	require.NoError(t, db.Create(chat).Error)
	return user, chat
}

func countTurns(t *testing.T, db *gorm.DB, chatID uuid.UUID, role models.Role) int64 {
	t.Helper()
	var n int64
	q := db.Model(&models.Message{}).Where("chat_id = ?", chatID)
	if role != "" {
		q = q.Where("role = ?", role)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
