package notifier

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxMessageLength is the Discord message size limit.
const DefaultMaxMessageLength = 2000

const fence = "```"

// ChunkMessage splits a Markdown message into pieces at most maxLen bytes
// long, breaking on newlines. An open code fence is closed at the end of a
// chunk and reopened at the start of the next so no chunk renders with a
// dangling fence. Single lines longer than maxLen are hard-split, never
// inside a UTF-8 sequence.
func ChunkMessage(message string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLength
	}
	if message == "" {
		return nil
	}

	// Reserve room for a closing fence that may be appended on flush.
	budget := maxLen - len(fence) - 1

	var chunks []string
	var current strings.Builder
	inFence := false
	currentInFence := false

	flush := func() {
		if current.Len() == 0 {
			return
		}
		text := current.String()
		if inFence {
			text += "\n" + fence
		}
		chunks = append(chunks, text)
		current.Reset()
		currentInFence = inFence
	}

	for _, line := range strings.Split(message, "\n") {
		for len(line) > budget {
			// Pathological single line, split mid-line.
			if current.Len() > 0 {
				flush()
				startChunk(&current, currentInFence)
			}
			cut := budget - current.Len()
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				// A rune wider than the remaining budget still advances.
				_, cut = utf8.DecodeRuneInString(line)
			}
			current.WriteString(line[:cut])
			line = line[cut:]
			flush()
			startChunk(&current, currentInFence)
		}

		sep := 0
		if current.Len() > 0 {
			sep = 1
		}
		if current.Len()+sep+len(line) > budget {
			flush()
			startChunk(&current, currentInFence)
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)

		if strings.HasPrefix(strings.TrimSpace(line), fence) {
			inFence = !inFence
		}
	}
	flush()

	return chunks
}

// startChunk reopens a code fence at the top of a fresh chunk when the
// previous chunk was cut mid-fence.
func startChunk(b *strings.Builder, reopenFence bool) {
	if reopenFence {
		b.WriteString(fence)
	}
}
