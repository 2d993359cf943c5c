package service

import (
	"context"
	"fmt"

	"vocata/internal/dao"
	"vocata/internal/model"
)

type FavoriteService interface {
	// AddFavorite 只能收藏自己可见的角色
	AddFavorite(ctx context.Context, userID uint, characterID string) error
	RemoveFavorite(ctx context.Context, userID uint, characterID string) error
	IsFavorite(ctx context.Context, userID uint, characterID string) (bool, error)
	PageFavorites(ctx context.Context, userID uint, page, size int) ([]*model.Character, int64, error)
}

type favoriteService struct {
	dao          dao.FavoriteDao
	characterSvc CharacterService
}

func NewFavoriteService(dao dao.FavoriteDao, characterSvc CharacterService) FavoriteService {
	return &favoriteService{dao: dao, characterSvc: characterSvc}
}

func (s *favoriteService) AddFavorite(ctx context.Context, userID uint, characterID string) error {
	if _, err := s.characterSvc.GetCharacter(ctx, userID, characterID); err != nil {
		return err
	}
	if err := s.dao.Add(ctx, userID, characterID); err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (s *favoriteService) RemoveFavorite(ctx context.Context, userID uint, characterID string) error {
	if err := s.dao.Remove(ctx, userID, characterID); err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

func (s *favoriteService) IsFavorite(ctx context.Context, userID uint, characterID string) (bool, error) {
	return s.dao.Exists(ctx, userID, characterID)
}

func (s *favoriteService) PageFavorites(ctx context.Context, userID uint, page, size int) ([]*model.Character, int64, error) {
	return s.dao.PageCharacters(ctx, userID, page, size)
}
