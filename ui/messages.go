package ui

import (
	"aster/model"
)

// Message is the UI-facing message type, shared with the data model
type Message = model.Message

// ToolCall mirrors the model's provider-agnostic tool invocation
type ToolCall = model.ToolCall

// Message aliases so Update code stays terse while the real types live in model
type streamChunkMsg = model.StreamChunkMsg
type streamErrorMsg = model.StreamErrorMsg
type streamChunksCollectedMsg = model.StreamChunksCollectedMsg
type displayChunkTickMsg = model.DisplayChunkTickMsg
type toolCallsDetectedMsg = model.ToolCallsDetectedMsg
type toolPermissionRequestMsg = model.ToolPermissionRequestMsg
type toolExecutionCompleteMsg = model.ToolExecutionCompleteMsg
type toolExecutionErrorMsg = model.ToolExecutionErrorMsg
type markdownRenderedMsg = model.MarkdownRenderedMsg
type modelsListMsg = model.ModelsListMsg
type conversationsListMsg = model.ConversationsListMsg
type conversationLoadedMsg = model.ConversationLoadedMsg
type conversationSavedMsg = model.ConversationSavedMsg
type conversationRenamedMsg = model.ConversationRenamedMsg
type conversationExportedMsg = model.ConversationExportedMsg
type conversationImportedMsg = model.ConversationImportedMsg
type exportCleanupDoneMsg = model.ExportCleanupDoneMsg
type indexSearchMsg = model.IndexSearchMsg
type flashTickMsg = model.FlashTickMsg
type pingResultMsg = model.PingResultMsg
type editorContentMsg = model.EditorContentMsg
type editorErrorMsg = model.EditorErrorMsg

type SettingFieldType int

const (
	SettingTypeDataDir SettingFieldType = iota
	SettingTypeBackendURL
	SettingTypeModel
	SettingTypeSystemPrompt
	SettingTypeWorkspaceDir
)

type SettingFieldValidation int

const (
	FieldValidationNone SettingFieldValidation = iota
	FieldValidationPending
	FieldValidationSuccess
	FieldValidationError
)

type SettingField struct {
	Label        string
	Value        string
	DefaultValue string
	Type         SettingFieldType
	Validation   SettingFieldValidation
	ErrorMsg     string
}
