package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/marvinh/rag-assistant/internal/core"
)

// AssignIDs sets a deterministic id on every chunk, formed as
// "<sanitized source>-<page>-<counter>" where the counter is a
// per-source ordinal that resets whenever the source changes between
// consecutive chunks. Repeated ingestion of unchanged content yields
// identical ids, which is what makes re-ingestion idempotent.
//
// Precondition: the input must already be grouped by source (the
// natural output order of the loader and chunker). The reset logic is
// stream-based, not a grouped aggregation; interleaved sources make
// counters restart mid-source and ids collide. Callers that cannot
// guarantee upstream ordering must stable-sort by source first.
func AssignIDs(chunks []core.Chunk) []core.Chunk {
	prevSource := ""
	counter := 0

	for i := range chunks {
		if chunks[i].Source != prevSource {
			prevSource = chunks[i].Source
			counter = 0
		}
		chunks[i].ID = fmt.Sprintf("%s-%d-%d", SanitizeSource(chunks[i].Source), chunks[i].Page, counter)
		counter++
	}

	return chunks
}

// SanitizeSource maps a source name onto the character set the index
// backends accept for record keys. Folding runes to '_' can make
// distinct names collide ("a.b.txt" and "a_b.txt" fold identically),
// so any name the fold alters gets a short digest of the original
// appended to keep id prefixes distinct per source.
func SanitizeSource(source string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, source)
	if mapped == source {
		return mapped
	}
	sum := sha256.Sum256([]byte(source))
	return mapped + "-" + hex.EncodeToString(sum[:3])
}
