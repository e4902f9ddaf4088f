package model

import (
	"aster/backend"
	"aster/gate"
	"aster/storage"
)

type StreamChunkMsg struct {
	Chunk string
}

// StreamErrorMsg reports a failed turn. Partial carries whatever assistant
// text arrived before the failure so the UI can keep it, flagged, instead of
// discarding it.
type StreamErrorMsg struct {
	Err     error
	Partial string
}

type StreamChunksCollectedMsg struct {
	Chunks       []string
	FullResponse string
}

type DisplayChunkTickMsg struct{}

// Tool execution messages
type ToolCallsDetectedMsg struct {
	ToolCalls       []ToolCall
	InitialResponse string
	ContextMessages []Message
}

// ToolPermissionRequestMsg asks the UI to show the approval prompt for a
// pending tool call. The call is already registered with the conversation's
// gate and stays pending until the user decides.
type ToolPermissionRequestMsg struct {
	ToolName        string
	Purpose         string
	ToolCall        ToolCall
	ContextMessages []Message
	InitialResponse string
	RemainingCalls  []ToolCall
}

type ToolExecutionCompleteMsg struct {
	Chunks        []string
	FullResponse  string
	HasMoreSteps  bool
	NextToolCalls []ToolCall
	NextContext   []Message
}

type ToolExecutionErrorMsg struct {
	Err     error
	Partial string // assistant text streamed before the failure, if any
}

type ToolResultsMsg struct {
	Results []gate.Result
}

type MarkdownRenderedMsg struct {
	MessageIndex int
	Rendered     string
}

type ModelsListMsg struct {
	Models       []backend.ModelInfo
	Err          error
	ShowSelector bool
}

type ConversationsListMsg struct {
	Conversations []storage.ConversationMetadata
	Err           error
}

type ConversationLoadedMsg struct {
	Conversation *storage.Conversation
	Err          error
}

type ConversationSavedMsg struct {
	Err error
}

type ConversationRenamedMsg struct {
	Err error
}

type ConversationExportedMsg struct {
	Path      string
	Err       error
	Cancelled bool
}

type ConversationImportedMsg struct {
	Conversation *storage.Conversation
	Err          error
	Cancelled    bool
}

type ExportCleanupDoneMsg struct{}

type IndexSearchMsg struct {
	Query   string
	Matches []storage.IndexedMessage
	Err     error
}

type FlashTickMsg struct{}

type PingResultMsg struct {
	Provider string
	Err      error
}

type EditorContentMsg struct {
	Content string
}

type EditorErrorMsg struct {
	Err error
}
