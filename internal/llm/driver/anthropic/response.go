package anthropic

import (
	"github.com/guggeis/chatrelay/internal/llm/content"
	"github.com/guggeis/chatrelay/internal/llm/driver"
)

type messagesResponse struct {
	ID         string           `json:"id"`
	Model      string           `json:"model"`
	Content    []contentSegment `json:"content"`
	StopReason string           `json:"stop_reason"`
	Usage      *usage           `json:"usage,omitempty"`
}

type contentSegment struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func toDriverResponse(resp *messagesResponse) (*driver.Response, error) {
	if resp == nil || len(resp.Content) == 0 {
		return nil, driver.ErrEmptyResponse
	}

	blocks := make([]content.ContentBlock, 0, len(resp.Content))
	for _, segment := range resp.Content {
		blockType := content.ContentType(segment.Type)
		if segment.Type == "text" {
			blockType = content.ContentTypeText
		}
		blocks = append(blocks, content.ContentBlock{Type: blockType, Text: segment.Text})
	}

	response := &driver.Response{
		Content:    blocks,
		StopReason: resp.StopReason,
	}
	if resp.Usage != nil {
		response.Usage = &driver.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		}
	}

	return response, nil
}
