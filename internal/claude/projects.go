package claude

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ListTranscripts lists session transcripts under ~/.claude/projects/. Each
// directory there represents a project Claude has been used with and holds
// one JSONL file per session. Sub-agent transcripts (agent-*.jsonl) are
// skipped; their activity already appears in the parent session.
func ListTranscripts(claudeHome string) ([]TranscriptFile, error) {
	dir := filepath.Join(claudeHome, "projects")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []TranscriptFile
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		projDir := filepath.Join(dir, entry.Name())
		children, err := os.ReadDir(projDir)
		if err != nil {
			continue
		}
		for _, f := range children {
			name := f.Name()
			if f.IsDir() || !strings.HasSuffix(name, ".jsonl") || strings.HasPrefix(name, "agent-") {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			files = append(files, TranscriptFile{
				Path:      filepath.Join(projDir, name),
				SessionID: strings.TrimSuffix(name, ".jsonl"),
				Project:   DecodeProjectName(entry.Name()),
				ModTime:   info.ModTime(),
			})
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// DecodeProjectName turns an encoded project directory name back into a
// path. The encoding replaces separators with dashes, so a dash that was part
// of a directory name decodes as a separator too.
func DecodeProjectName(encoded string) string {
	return strings.ReplaceAll(encoded, "-", "/")
}
