package mineru

import (
	"encoding/json"
	"strings"
)

// entryState is the lifecycle state of one document within a batch.
// Unrecognized strings from the service map to stateUnknown, which is
// non-terminal, so a new intermediate state can never wedge a result.
type entryState int

const (
	stateUnknown entryState = iota
	stateQueued
	stateRunning
	stateDone
	stateFailed
)

func parseEntryState(s string) entryState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "done", "success":
		return stateDone
	case "failed", "error":
		return stateFailed
	case "running", "converting", "extracting":
		return stateRunning
	case "queued", "pending", "waiting-file":
		return stateQueued
	default:
		return stateUnknown
	}
}

func (s entryState) terminal() bool {
	return s == stateDone || s == stateFailed
}

func (s entryState) String() string {
	switch s {
	case stateQueued:
		return "queued"
	case stateRunning:
		return "running"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// blockKind is the semantic kind of one content block in the structured
// content listing.
type blockKind int

const (
	blockUnknown blockKind = iota
	blockTitle
	blockParagraph
	blockTable
	blockPageHeader
	blockPageFooter
	blockImage
)

func parseBlockKind(s string) blockKind {
	switch s {
	case "title":
		return blockTitle
	case "text", "paragraph":
		return blockParagraph
	case "table":
		return blockTable
	case "page_header":
		return blockPageHeader
	case "page_footer":
		return blockPageFooter
	case "image":
		return blockImage
	default:
		return blockUnknown
	}
}

// lineItem is one text fragment inside a content block or an inline
// content listing. Older bundles use "content" where newer ones use "text".
type lineItem struct {
	Text    string `json:"text"`
	Content string `json:"content"`
}

func (l lineItem) value() string {
	if l.Text != "" {
		return l.Text
	}
	return l.Content
}

// contentBlock is one semantic unit in the structured content listing.
type contentBlock struct {
	Type      string     `json:"type"`
	Lines     []lineItem `json:"lines"`
	TableHTML string     `json:"table_body"`
}

// flattenContentList parses a structured content listing (outer sequence
// of pages, each an ordered sequence of blocks) and concatenates the
// extractable text of every block in page-then-block order. Image blocks
// carry no text and contribute nothing; tables contribute their HTML
// fragment verbatim so the structuring model can read the cells. Page
// headers and footers are kept: the payee line of a medical invoice
// usually sits in the footer region, which the markdown rendering drops.
func flattenContentList(data []byte) (string, error) {
	var pages [][]contentBlock
	if err := json.Unmarshal(data, &pages); err != nil {
		// Legacy listings predate the page nesting and hold a flat
		// block array.
		var flat []contentBlock
		if flatErr := json.Unmarshal(data, &flat); flatErr != nil {
			return "", err
		}
		pages = [][]contentBlock{flat}
	}

	var parts []string
	for _, page := range pages {
		for _, block := range page {
			switch parseBlockKind(block.Type) {
			case blockImage:
				// no extractable text
			case blockTable:
				if block.TableHTML != "" {
					parts = append(parts, block.TableHTML)
				}
			case blockTitle, blockParagraph, blockPageHeader, blockPageFooter, blockUnknown:
				for _, line := range block.Lines {
					if v := line.value(); v != "" {
						parts = append(parts, v)
					}
				}
			}
		}
	}
	return strings.Join(parts, "\n"), nil
}
