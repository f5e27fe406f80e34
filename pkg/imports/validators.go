package imports

import "mime/multipart"

// UploadPayload is a multipart form with the spreadsheet in the "file" field.
type UploadPayload struct {
	UpdateExisting     bool    `form:"update_existing"`
	CreateDependencies bool    `form:"create_dependencies"`
	CreateCopies       bool    `form:"create_copies"`
	CreateUsers        bool    `form:"create_users"`
	Notes              *string `form:"notes" mod:"trim" validate:"omitempty,max=500"`

	FormFiles map[string]*multipart.FileHeader `form:"-"`
}

type ListRunsQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"25" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Type   *string `query:"type" json:"type,omitempty" validate:"omitempty,oneof=authors books members"`
}
