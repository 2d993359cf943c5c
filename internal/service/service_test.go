package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"vocata/config"
	"vocata/internal/ai/pipeline"
	"vocata/internal/ai/selector"
	"vocata/internal/dao"
	hisdao "vocata/internal/dao/history"
	"vocata/internal/database"
	"vocata/internal/model"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDB(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 单连接保证内存库在测试期间不被回收，也避免并发写锁冲突
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type testServices struct {
	db        *gorm.DB
	character CharacterService
	history   HistoryService
	favorite  FavoriteService
}

func newTestServices(t *testing.T) *testServices {
	db := newTestDB(t)
	characterSvc := NewCharacterService(dao.NewCharacterDao(db))
	return &testServices{
		db:        db,
		character: characterSvc,
		history:   NewHistoryService(hisdao.NewConvDao(db), hisdao.NewMsgDao(db)),
		favorite:  NewFavoriteService(dao.NewFavoriteDao(db), characterSvc),
	}
}

func (s *testServices) publishedCharacter(t *testing.T, creatorID uint, name string) *model.Character {
	t.Helper()
	c, err := s.character.CreateCharacter(context.Background(), creatorID, &model.CreateCharacterRequest{
		Name:        name,
		Description: name + "的介绍",
		Greeting:    "你好呀，我是" + name,
		Persona:     "住在山里的" + name,
		VoiceID:     "xiaoyi",
		Tags:        "温柔, 治愈",
		Status:      model.CharacterPublished,
	})
	require.NoError(t, err)
	return c
}

type staticSource struct{ sel *selector.Selection }

func (s staticSource) Load() *selector.Selection { return s.sel }

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	failPut bool
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Put(_ context.Context, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return "", errors.New("bucket unavailable")
	}
	url := "/static/" + uuid.NewString()
	m.objects[url] = append([]byte(nil), data...)
	return url, nil
}

func (m *memStore) Delete(_ context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[url]; !ok {
		return false, nil
	}
	delete(m.objects, url)
	m.deleted = append(m.deleted, url)
	return true, nil
}

func drain(t *testing.T, sr *schema.StreamReader[*pipeline.Envelope]) []*pipeline.Envelope {
	t.Helper()
	defer sr.Close()
	var out []*pipeline.Envelope
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			e, err := sr.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				t.Errorf("recv: %v", err)
				return
			}
			out = append(out, e)
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("turn did not finish")
	}
	return out
}
