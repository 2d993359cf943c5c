package service

import (
	"context"
	"testing"

	"vocata/internal/dao"
	"vocata/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCharacterDefaults(t *testing.T) {
	s := newTestServices(t)
	c := s.publishedCharacter(t, 1, "小雨")

	assert.Equal(t, 0.7, c.Temperature)
	assert.Equal(t, 10, c.ContextWindow)
	assert.Equal(t, "zh-CN", c.Language)
	assert.Equal(t, "温柔,治愈", c.Tags)
}

func TestUpdateCharacterOwnerOnly(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	c := s.publishedCharacter(t, 1, "小雨")

	_, err := s.character.UpdateCharacter(ctx, 2, &model.UpdateCharacterRequest{ID: c.ID, Name: "别人的名字"})
	assert.ErrorIs(t, err, dao.ErrCharacterNotFound)

	private := true
	updated, err := s.character.UpdateCharacter(ctx, 1, &model.UpdateCharacterRequest{ID: c.ID, SpeakingStyle: "说话很慢", IsPrivate: &private})
	require.NoError(t, err)
	assert.Equal(t, "小雨", updated.Name)
	assert.Equal(t, "说话很慢", updated.SpeakingStyle)

	got, err := s.character.GetCharacter(ctx, 1, c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPrivate)

	// 私有角色对其他用户不可见
	_, err = s.character.GetCharacter(ctx, 2, c.ID)
	assert.ErrorIs(t, err, dao.ErrCharacterNotFound)
}

func TestDeleteCharacterOwnerOnly(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	c := s.publishedCharacter(t, 1, "小雨")

	assert.ErrorIs(t, s.character.DeleteCharacter(ctx, 2, c.ID), dao.ErrCharacterNotFound)
	require.NoError(t, s.character.DeleteCharacter(ctx, 1, c.ID))
	_, err := s.character.GetCharacter(ctx, 1, c.ID)
	assert.ErrorIs(t, err, dao.ErrCharacterNotFound)
}

func TestPublicListingAndSearch(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	s.publishedCharacter(t, 1, "小雨")
	s.publishedCharacter(t, 2, "阿明")
	_, err := s.character.CreateCharacter(ctx, 1, &model.CreateCharacterRequest{Name: "草稿", Description: "未发布", Status: model.CharacterDraft})
	require.NoError(t, err)

	list, total, err := s.character.PagePublic(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)

	mine, total, err := s.character.PageMine(ctx, 1, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, mine, 2)

	found, total, err := s.character.Search(ctx, "治愈", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, found, 2)

	found, _, err = s.character.Search(ctx, "阿明", 1, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "阿明", found[0].Name)
}

func TestIncrementChatCount(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	c := s.publishedCharacter(t, 1, "小雨")

	require.NoError(t, s.character.IncrementChatCount(ctx, c.ID))
	require.NoError(t, s.character.IncrementChatCount(ctx, c.ID))
	got, err := s.character.GetCharacter(ctx, 1, c.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.ChatCount)
}

func TestFeatured(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	c := s.publishedCharacter(t, 1, "小雨")
	s.publishedCharacter(t, 1, "阿明")
	require.NoError(t, s.db.Model(&model.Character{}).Where("id = ?", c.ID).Update("is_featured", true).Error)

	list, err := s.character.Featured(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)
}

func TestFavorites(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	c := s.publishedCharacter(t, 1, "小雨")

	require.NoError(t, s.favorite.AddFavorite(ctx, 2, c.ID))
	require.NoError(t, s.favorite.AddFavorite(ctx, 2, c.ID))

	ok, err := s.favorite.IsFavorite(ctx, 2, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	list, total, err := s.favorite.PageFavorites(ctx, 2, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, "小雨", list[0].Name)

	require.NoError(t, s.favorite.RemoveFavorite(ctx, 2, c.ID))
	ok, err = s.favorite.IsFavorite(ctx, 2, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, s.favorite.AddFavorite(ctx, 2, "missing"), dao.ErrCharacterNotFound)
}
