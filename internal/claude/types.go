package claude

import (
	"encoding/json"
	"time"
)

// TranscriptEntry is one line of a session transcript (~/.claude/projects/<dir>/<id>.jsonl).
type TranscriptEntry struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	SessionID string          `json:"sessionId"`
	Cwd       string          `json:"cwd"`
	GitBranch string          `json:"gitBranch"`
	IsMeta    bool            `json:"isMeta"`
	Message   json.RawMessage `json:"message"`
}

// Message is the message payload of a user or assistant entry.
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent holds the content blocks of a message. Transcripts store
// user prompts either as a plain string or as a list of blocks; a plain
// string decodes to a single text block.
type MessageContent []ContentBlock

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*c = nil
			return nil
		}
		*c = MessageContent{{Type: "text", Text: s}}
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	*c = blocks
	return nil
}

// ContentBlock is a single block within a message.
type ContentBlock struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
	Text      string          `json:"text,omitempty"`
}

// toolInput is the union of the tool_use input fields the extractor reads.
type toolInput struct {
	FilePath     string `json:"file_path"`
	NotebookPath string `json:"notebook_path"`
	Command      string `json:"command"`
	Skill        string `json:"skill"`
	SubagentType string `json:"subagent_type"`
}

// TranscriptFile is a session transcript found on disk.
type TranscriptFile struct {
	Path      string
	SessionID string
	// Project is the decoded project directory name; a cwd recorded in the
	// transcript takes precedence when the file is parsed.
	Project string
	ModTime time.Time
}
