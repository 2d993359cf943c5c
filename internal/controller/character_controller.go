package controller

import (
	"errors"

	"vocata/internal/dao"
	"vocata/internal/model"
	"vocata/internal/service"
	"vocata/internal/utils"
	"vocata/pkgs/errcode"
	"vocata/pkgs/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CharacterController struct {
	svc    service.CharacterService
	favSvc service.FavoriteService
	logger *zap.Logger
}

func NewCharacterController(svc service.CharacterService, favSvc service.FavoriteService, logger *zap.Logger) *CharacterController {
	return &CharacterController{svc: svc, favSvc: favSvc, logger: named(logger, "controller.character")}
}

// CreateCharacter 创建角色
func (c *CharacterController) CreateCharacter(ctx *gin.Context) {
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}

	var req model.CreateCharacterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "参数错误: "+err.Error())
		return
	}

	character, err := c.svc.CreateCharacter(ctx.Request.Context(), userID, &req)
	if err != nil {
		c.logger.Error("create character failed", zap.Uint("user_id", userID), zap.Error(err))
		response.InternalError(ctx, errcode.InternalServerError, "创建角色失败")
		return
	}
	response.SuccessWithMessage(ctx, "创建成功", character)
}

// UpdateCharacter 更新角色，仅创建者可操作
func (c *CharacterController) UpdateCharacter(ctx *gin.Context) {
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}

	var req model.UpdateCharacterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "参数错误: "+err.Error())
		return
	}

	character, err := c.svc.UpdateCharacter(ctx.Request.Context(), userID, &req)
	if err != nil {
		c.characterError(ctx, "更新角色失败", err)
		return
	}
	response.SuccessWithMessage(ctx, "更新成功", character)
}

// DeleteCharacter 删除角色
func (c *CharacterController) DeleteCharacter(ctx *gin.Context) {
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}

	id := ctx.Query("id")
	if id == "" {
		response.ParamError(ctx, errcode.ParamBindError, "缺少角色ID")
		return
	}
	if err := c.svc.DeleteCharacter(ctx.Request.Context(), userID, id); err != nil {
		c.characterError(ctx, "删除角色失败", err)
		return
	}
	response.SuccessWithMessage(ctx, "删除成功", nil)
}

// GetCharacter 角色详情，附带当前用户是否收藏
func (c *CharacterController) GetCharacter(ctx *gin.Context) {
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}

	id := ctx.Query("id")
	if id == "" {
		response.ParamError(ctx, errcode.ParamBindError, "缺少角色ID")
		return
	}
	character, err := c.svc.GetCharacter(ctx.Request.Context(), userID, id)
	if err != nil {
		c.characterError(ctx, "获取角色失败", err)
		return
	}
	favorited, err := c.favSvc.IsFavorite(ctx.Request.Context(), userID, id)
	if err != nil {
		c.logger.Warn("check favorite failed", zap.String("character_id", id), zap.Error(err))
	}
	response.Success(ctx, gin.H{"character": character, "is_favorite": favorited})
}

// PagePublic 公开角色广场
func (c *CharacterController) PagePublic(ctx *gin.Context) {
	page, size, err := utils.ParsePaginationParams(ctx)
	if err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "分页参数错误")
		return
	}
	list, total, err := c.svc.PagePublic(ctx.Request.Context(), page, size)
	if err != nil {
		c.logger.Error("page public characters failed", zap.Error(err))
		response.InternalError(ctx, errcode.InternalServerError, "获取角色列表失败")
		return
	}
	response.PageSuccess(ctx, list, total)
}

// PageMine 我创建的角色
func (c *CharacterController) PageMine(ctx *gin.Context) {
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}
	page, size, err := utils.ParsePaginationParams(ctx)
	if err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "分页参数错误")
		return
	}
	list, total, err := c.svc.PageMine(ctx.Request.Context(), userID, page, size)
	if err != nil {
		c.logger.Error("page my characters failed", zap.Uint("user_id", userID), zap.Error(err))
		response.InternalError(ctx, errcode.InternalServerError, "获取角色列表失败")
		return
	}
	response.PageSuccess(ctx, list, total)
}

func (c *CharacterController) Search(ctx *gin.Context) {
	var req model.SearchCharacterRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "参数错误: "+err.Error())
		return
	}
	if req.Page < 1 || req.Size < 1 || req.Size > 100 {
		response.ParamError(ctx, errcode.ParamBindError, "分页参数错误")
		return
	}
	list, total, err := c.svc.Search(ctx.Request.Context(), req.Keyword, req.Page, req.Size)
	if err != nil {
		c.logger.Error("search characters failed", zap.String("keyword", req.Keyword), zap.Error(err))
		response.InternalError(ctx, errcode.InternalServerError, "搜索失败")
		return
	}
	response.PageSuccess(ctx, list, total)
}

func (c *CharacterController) Featured(ctx *gin.Context) {
	list, err := c.svc.Featured(ctx.Request.Context())
	if err != nil {
		c.logger.Error("list featured characters failed", zap.Error(err))
		response.InternalError(ctx, errcode.InternalServerError, "获取推荐角色失败")
		return
	}
	response.Success(ctx, list)
}

// AddFavorite 收藏角色
func (c *CharacterController) AddFavorite(ctx *gin.Context) {
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}
	var req model.FavoriteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "参数错误: "+err.Error())
		return
	}
	if err := c.favSvc.AddFavorite(ctx.Request.Context(), userID, req.CharacterID); err != nil {
		c.characterError(ctx, "收藏失败", err)
		return
	}
	response.SuccessWithMessage(ctx, "收藏成功", nil)
}

// RemoveFavorite 取消收藏
func (c *CharacterController) RemoveFavorite(ctx *gin.Context) {
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}
	var req model.FavoriteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "参数错误: "+err.Error())
		return
	}
	if err := c.favSvc.RemoveFavorite(ctx.Request.Context(), userID, req.CharacterID); err != nil {
		c.logger.Error("remove favorite failed", zap.Error(err))
		response.InternalError(ctx, errcode.FavoriteFailed, "取消收藏失败")
		return
	}
	response.SuccessWithMessage(ctx, "已取消收藏", nil)
}

// PageFavorites 我收藏的角色
func (c *CharacterController) PageFavorites(ctx *gin.Context) {
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}
	page, size, err := utils.ParsePaginationParams(ctx)
	if err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "分页参数错误")
		return
	}
	list, total, err := c.favSvc.PageFavorites(ctx.Request.Context(), userID, page, size)
	if err != nil {
		c.logger.Error("page favorites failed", zap.Error(err))
		response.InternalError(ctx, errcode.InternalServerError, "获取收藏失败")
		return
	}
	response.PageSuccess(ctx, list, total)
}

func (c *CharacterController) characterError(ctx *gin.Context, msg string, err error) {
	if errors.Is(err, dao.ErrCharacterNotFound) {
		response.NotFoundError(ctx, errcode.CharacterNotFound, "角色不存在或无权限")
		return
	}
	c.logger.Error(msg, zap.Error(err))
	response.InternalError(ctx, errcode.InternalServerError, msg)
}

func named(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.Named(name)
}
