package errcode

// 通用错误码
const (
	Success             = 0
	ParamBindError      = 10001
	UnauthorizedError   = 10002
	ForbiddenError      = 10003
	NotFoundError       = 10004
	InternalServerError = 10005
)

// 文件相关
const (
	FileUploadFailed = 20001
	FileParseFailed  = 20002
	FileDeleteFailed = 20003
	FileTypeInvalid  = 20004
)

// 角色与会话
const (
	CharacterNotFound    = 30001
	ConversationNotFound = 30002
	FavoriteFailed       = 30003
)

// AI 能力
const (
	ProviderUnavailable = 40001
	SynthesizeFailed    = 40002
	RecognizeFailed     = 40003
)
