package controller

import (
	"errors"

	"vocata/internal/service"
	"vocata/internal/utils"
	"vocata/pkgs/errcode"
	"vocata/pkgs/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FileController struct {
	fileService service.FileService
	logger      *zap.Logger
}

func NewFileController(fileService service.FileService, logger *zap.Logger) *FileController {
	return &FileController{fileService: fileService, logger: named(logger, "controller.file")}
}

func (fc *FileController) Upload(ctx *gin.Context) {
	// 1. 获取用户ID
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}

	// 2. 解析表单文件
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "上传失败")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.ParamError(ctx, errcode.FileParseFailed, "上传失败")
		return
	}
	defer file.Close()

	// 用途可选，默认为普通图片
	purpose := ctx.PostForm("purpose")

	f, err := fc.fileService.UploadFile(ctx.Request.Context(), userID, fileHeader, file, purpose)
	switch {
	case errors.Is(err, service.ErrFileTooLarge):
		response.ParamError(ctx, errcode.FileUploadFailed, "文件大小不能超过10MB")
	case errors.Is(err, service.ErrFileType), errors.Is(err, service.ErrFilePurpose):
		response.ParamError(ctx, errcode.FileTypeInvalid, "不支持的文件类型")
	case err != nil:
		fc.logger.Error("upload file failed", zap.Uint("user_id", userID), zap.Error(err))
		response.InternalError(ctx, errcode.FileUploadFailed, "上传失败")
	default:
		response.SuccessWithMessage(ctx, "文件上传成功", f)
	}
}

func (fc *FileController) List(ctx *gin.Context) {
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}
	page, pageSize, err := utils.ParsePaginationParams(ctx)
	if err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "分页参数错误")
		return
	}

	files, total, err := fc.fileService.PageList(ctx.Request.Context(), userID, ctx.Query("purpose"), page, pageSize)
	if err != nil {
		fc.logger.Error("list files failed", zap.Uint("user_id", userID), zap.Error(err))
		response.InternalError(ctx, errcode.InternalServerError, "获取文件列表失败")
		return
	}
	response.PageSuccess(ctx, files, total)
}

func (fc *FileController) Delete(ctx *gin.Context) {
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}
	fileID := ctx.Query("file_id")
	if fileID == "" {
		response.ParamError(ctx, errcode.ParamBindError, "缺少文件ID")
		return
	}

	if err := fc.fileService.DeleteFile(ctx.Request.Context(), userID, fileID); err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			response.NotFoundError(ctx, errcode.NotFoundError, "文件不存在")
			return
		}
		fc.logger.Error("delete file failed", zap.String("file_id", fileID), zap.Error(err))
		response.InternalError(ctx, errcode.FileDeleteFailed, "删除失败")
		return
	}
	response.SuccessWithMessage(ctx, "删除成功", nil)
}

// Get 文件详情，仅本人可见
func (fc *FileController) Get(ctx *gin.Context) {
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}
	fileID := ctx.Query("file_id")
	if fileID == "" {
		response.ParamError(ctx, errcode.ParamBindError, "缺少文件ID")
		return
	}
	f, err := fc.fileService.GetFile(ctx.Request.Context(), userID, fileID)
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			response.NotFoundError(ctx, errcode.NotFoundError, "文件不存在")
			return
		}
		fc.logger.Error("get file failed", zap.String("file_id", fileID), zap.Error(err))
		response.InternalError(ctx, errcode.InternalServerError, "获取文件失败")
		return
	}
	response.Success(ctx, f)
}
